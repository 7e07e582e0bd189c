package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/transitflow/transitflow/pkg/tdf"
)

const numConsumers = 5
const batchSize = 200

const avlQueueName = "avl-queue"

var assignmentCache *cache.Cache[string]

type vehicleAssignment struct {
	TripRef  string
	BlockRef string

	LastUpdated time.Time
}

func (a vehicleAssignment) MarshalBinary() ([]byte, error) {
	return json.Marshal(a)
}

// CreateAssignmentCache sets up the Redis-backed cache that remembers which
// trip & block a vehicle last declared, so later reports from feeds that only
// carry coordinates keep their assignment hints
func CreateAssignmentCache() {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(90*time.Minute))

	assignmentCache = cache.New[string](redisStore)
}

// StartConsumers runs the background queue consumers feeding the dispatcher
func StartConsumers(dispatcher *AvlDispatcher) error {
	CreateAssignmentCache()

	log.Info().Msg("Starting AVL consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(avlQueueName)
	if err != nil {
		return err
	}
	if err := queue.StartConsuming(numConsumers*batchSize, 1*time.Second); err != nil {
		return err
	}

	for i := 0; i < numConsumers; i++ {
		consumerID := i
		log.Info().Msgf("Starting AVL consumer %d", consumerID)

		if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", avlQueueName, consumerID), batchSize, 2*time.Second, NewBatchConsumer(dispatcher, consumerID)); err != nil {
			return err
		}
	}

	return nil
}

type BatchConsumer struct {
	id         int
	dispatcher *AvlDispatcher
}

func NewBatchConsumer(dispatcher *AvlDispatcher, id int) *BatchConsumer {
	return &BatchConsumer{id: id, dispatcher: dispatcher}
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	for _, payload := range batch.Payloads() {
		var report *tdf.AvlReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			log.Error().Err(err).Int("consumer", consumer.id).Msg("Failed to decode AVL report")
			continue
		}
		if report == nil {
			// A payload of literal JSON null decodes without an error
			log.Error().Int("consumer", consumer.id).Msg("Discarding empty AVL report")
			continue
		}

		consumer.applyAssignmentHints(report)

		if err := consumer.dispatcher.Submit(report); err != nil {
			log.Error().Err(err).Str("vehicle", report.VehicleIdentifier).Msg("Failed to submit AVL report")
		}
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack AVL batch")
		}
	}
}

func (consumer *BatchConsumer) applyAssignmentHints(report *tdf.AvlReport) {
	if assignmentCache == nil {
		return
	}

	cacheKey := fmt.Sprintf("vehicle-assignment:%s", report.VehicleIdentifier)

	if report.DeclaredTripRef != "" || report.DeclaredBlockRef != "" {
		assignmentJSON, _ := json.Marshal(vehicleAssignment{
			TripRef:     report.DeclaredTripRef,
			BlockRef:    report.DeclaredBlockRef,
			LastUpdated: report.RecordedAt,
		})
		assignmentCache.Set(context.Background(), cacheKey, string(assignmentJSON))

		return
	}

	cached, _ := assignmentCache.Get(context.Background(), cacheKey)
	if cached == "" {
		return
	}

	var assignment vehicleAssignment
	if err := json.Unmarshal([]byte(cached), &assignment); err != nil {
		return
	}

	report.DeclaredTripRef = assignment.TripRef
	report.DeclaredBlockRef = assignment.BlockRef
}

package datacache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/tdf"
	"go.mongodb.org/mongo-driver/bson"
)

const defaultRetentionWindow = 4 * time.Hour
const defaultMaxEventsPerTrip = 200

type tripHistoryEntry struct {
	mu     sync.Mutex
	events []*tdf.ArrivalDeparture
}

// TripDataHistoryCache holds a bounded window of observed arrival & departure
// events per trip. It is the ground truth recent performance record used to
// seed and validate the error cache. Writers to different trips never block
// each other
type TripDataHistoryCache struct {
	entries sync.Map // tdf.TripKey -> *tripHistoryEntry

	RetentionWindow  time.Duration
	MaxEventsPerTrip int
}

func NewTripDataHistoryCache() *TripDataHistoryCache {
	return &TripDataHistoryCache{
		RetentionWindow:  defaultRetentionWindow,
		MaxEventsPerTrip: defaultMaxEventsPerTrip,
	}
}

func tripKeyForEvent(event *tdf.ArrivalDeparture) tdf.TripKey {
	return tdf.TripKey{
		TripRef:   event.TripRef,
		StartDate: event.ObservedTime.Format("2006-01-02"),
	}
}

// PutArrivalDeparture admits an observed event into the trip's window,
// evicting the oldest events once the window is exceeded. Returns the trip
// key the event was recorded under
func (c *TripDataHistoryCache) PutArrivalDeparture(event *tdf.ArrivalDeparture) tdf.TripKey {
	key := tripKeyForEvent(event)

	value, _ := c.entries.LoadOrStore(key, &tripHistoryEntry{})
	entry := value.(*tripHistoryEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// Events almost always arrive in time order so this is amortised O(1) -
	// the occasional stray is inserted at its ordered position
	n := len(entry.events)
	if n == 0 || !event.ObservedTime.Before(entry.events[n-1].ObservedTime) {
		entry.events = append(entry.events, event)
	} else {
		i := sort.Search(n, func(i int) bool {
			return entry.events[i].ObservedTime.After(event.ObservedTime)
		})
		entry.events = append(entry.events, nil)
		copy(entry.events[i+1:], entry.events[i:])
		entry.events[i] = event
	}

	// Evict oldest first - by event time, not insertion order
	newest := entry.events[len(entry.events)-1].ObservedTime
	cutoff := newest.Add(-c.RetentionWindow)

	start := 0
	for start < len(entry.events)-1 && entry.events[start].ObservedTime.Before(cutoff) {
		start++
	}
	if over := len(entry.events) - start - c.MaxEventsPerTrip; over > 0 {
		start += over
	}
	if start > 0 {
		entry.events = append([]*tdf.ArrivalDeparture{}, entry.events[start:]...)
	}

	return key
}

// GetTripHistory returns a copy of the event window for a trip, ordered by
// event time ascending. Unknown trips yield nil
func (c *TripDataHistoryCache) GetTripHistory(key tdf.TripKey) []*tdf.ArrivalDeparture {
	value, ok := c.entries.Load(key)
	if !ok {
		return nil
	}

	entry := value.(*tripHistoryEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	events := make([]*tdf.ArrivalDeparture, len(entry.events))
	copy(events, entry.events)

	return events
}

// Keys returns every trip key currently held
func (c *TripDataHistoryCache) Keys() []tdf.TripKey {
	var keys []tdf.TripKey

	c.entries.Range(func(key, value any) bool {
		keys = append(keys, key.(tdf.TripKey))
		return true
	})

	return keys
}

// PopulateCacheFromDb warm loads the cache from the historical arrival &
// departure records between the two dates. Runs at startup or on explicit
// backfill, never on the ingestion path
func (c *TripDataHistoryCache) PopulateCacheFromDb(ctx context.Context, startDate time.Time, endDate time.Time) error {
	arrivalDeparturesCollection := database.GetCollection("arrival_departures")

	operation := func() error {
		cursor, err := arrivalDeparturesCollection.Find(ctx, bson.M{
			"observedtime": bson.M{
				"$gte": startDate,
				"$lt":  endDate,
			},
		})
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		count := 0
		for cursor.Next(ctx) {
			var event *tdf.ArrivalDeparture
			if err := cursor.Decode(&event); err != nil {
				log.Error().Err(err).Msg("Failed to decode ArrivalDeparture")
				continue
			}

			c.PutArrivalDeparture(event)
			count += 1
		}

		log.Info().Int("count", count).Msg("Populated trip history cache from database")

		return cursor.Err()
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
}

// FindPreviousArrivalEvent returns the latest arrival in the candidate list
// strictly before the reference event. Ties on time are broken by list order
func FindPreviousArrivalEvent(candidates []*tdf.ArrivalDeparture, reference *tdf.ArrivalDeparture) *tdf.ArrivalDeparture {
	return latestBefore(candidates, reference, func(event *tdf.ArrivalDeparture) bool {
		return event.IsArrival()
	})
}

// FindPreviousDepartureEvent returns the latest departure in the candidate
// list strictly before the reference event
func FindPreviousDepartureEvent(candidates []*tdf.ArrivalDeparture, reference *tdf.ArrivalDeparture) *tdf.ArrivalDeparture {
	return latestBefore(candidates, reference, func(event *tdf.ArrivalDeparture) bool {
		return event.IsDeparture()
	})
}

// FindUpcomingDepartureEvent returns the earliest departure in the candidate
// list strictly after the reference arrival
func FindUpcomingDepartureEvent(candidates []*tdf.ArrivalDeparture, reference *tdf.ArrivalDeparture) *tdf.ArrivalDeparture {
	var found *tdf.ArrivalDeparture

	for _, event := range candidates {
		if !event.IsDeparture() {
			continue
		}
		if !event.ObservedTime.After(reference.ObservedTime) {
			continue
		}

		if found == nil || event.ObservedTime.Before(found.ObservedTime) {
			found = event
		}
	}

	return found
}

func latestBefore(candidates []*tdf.ArrivalDeparture, reference *tdf.ArrivalDeparture, matches func(*tdf.ArrivalDeparture) bool) *tdf.ArrivalDeparture {
	var found *tdf.ArrivalDeparture

	for _, event := range candidates {
		if !matches(event) {
			continue
		}
		if !event.ObservedTime.Before(reference.ObservedTime) {
			continue
		}

		if found == nil || event.ObservedTime.After(found.ObservedTime) {
			found = event
		}
	}

	return found
}

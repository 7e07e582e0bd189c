package dataimporter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/transitflow/transitflow/pkg/tdf"
	"google.golang.org/protobuf/proto"
)

const avlQueueName = "avl-queue"

// ImportGTFSRT fetches a GTFS-RT VehiclePositions feed and enqueues each
// entity as an AVL report for the realtime engine
func ImportGTFSRT(url string) error {
	feed, err := fetchFeed(url)
	if err != nil {
		return err
	}

	reports := ReportsFromFeed(feed)

	queue, err := redis_client.QueueConnection.OpenQueue(avlQueueName)
	if err != nil {
		return err
	}

	published := 0
	for _, report := range reports {
		reportJSON, err := json.Marshal(report)
		if err != nil {
			log.Error().Err(err).Str("vehicle", report.VehicleIdentifier).Msg("Failed to encode AVL report")
			continue
		}

		if err := queue.PublishBytes(reportJSON); err != nil {
			log.Error().Err(err).Str("vehicle", report.VehicleIdentifier).Msg("Failed to publish AVL report")
			continue
		}

		published += 1
	}

	log.Info().Int("published", published).Int("entities", len(feed.Entity)).Msg("Imported GTFS-RT vehicle positions")

	return nil
}

// ReportsFromFeed converts the vehicle position entities of a feed into AVL
// reports, skipping entities without a usable position
func ReportsFromFeed(feed *gtfsrtpb.FeedMessage) []*tdf.AvlReport {
	var reports []*tdf.AvlReport

	for _, entity := range feed.Entity {
		vehicle := entity.Vehicle
		if vehicle == nil || vehicle.Position == nil {
			continue
		}

		vehicleID := ""
		if vehicle.Vehicle != nil && vehicle.Vehicle.Id != nil {
			vehicleID = *vehicle.Vehicle.Id
		}
		if vehicleID == "" {
			continue
		}

		recordedAt := time.Now()
		if vehicle.Timestamp != nil {
			recordedAt = time.Unix(int64(*vehicle.Timestamp), 0)
		}

		report := &tdf.AvlReport{
			VehicleIdentifier: vehicleID,
			Location: tdf.Location{
				Type: "Point",
				Coordinates: []float64{
					float64(*vehicle.Position.Longitude),
					float64(*vehicle.Position.Latitude),
				},
			},
			RecordedAt: recordedAt,
			DataSource: "GTFS-RT",
		}

		if vehicle.Position.Bearing != nil {
			report.Bearing = float64(*vehicle.Position.Bearing)
		}
		if vehicle.Position.Speed != nil {
			report.Speed = float64(*vehicle.Position.Speed)
		}
		if vehicle.Trip != nil && vehicle.Trip.TripId != nil {
			report.DeclaredTripRef = *vehicle.Trip.TripId
		}

		reports = append(reports, report)
	}

	return reports
}

func fetchFeed(url string) (*gtfsrtpb.FeedMessage, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, err
	}

	return &feed, nil
}

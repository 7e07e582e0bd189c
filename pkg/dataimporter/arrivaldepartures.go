package dataimporter

import (
	"context"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/tdf"
)

type arrivalDepartureRecord struct {
	EventType         string `csv:"event_type"`
	StopRef           string `csv:"stop_ref"`
	TripRef           string `csv:"trip_ref"`
	VehicleIdentifier string `csv:"vehicle_id"`
	BlockRef          string `csv:"block_ref"`
	ScheduledTime     string `csv:"scheduled_time"`
	ObservedTime      string `csv:"observed_time"`
}

// ImportArrivalDepartures backfills historical arrival & departure records
// from a CSV export into the database, where the trip history cache warm
// loads them from
func ImportArrivalDepartures(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var records []*arrivalDepartureRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return err
	}

	var documents []interface{}
	for _, record := range records {
		event, err := record.toEvent()
		if err != nil {
			log.Error().Err(err).Str("trip", record.TripRef).Msg("Skipping unparseable record")
			continue
		}

		documents = append(documents, event)
	}

	if len(documents) == 0 {
		log.Warn().Str("path", path).Msg("No importable records found")
		return nil
	}

	arrivalDeparturesCollection := database.GetCollection("arrival_departures")
	_, err = arrivalDeparturesCollection.InsertMany(context.Background(), documents)
	if err != nil {
		return err
	}

	log.Info().Int("count", len(documents)).Msg("Imported arrival & departure records")

	return nil
}

func (r *arrivalDepartureRecord) toEvent() (*tdf.ArrivalDeparture, error) {
	scheduled, err := time.Parse(time.RFC3339, r.ScheduledTime)
	if err != nil {
		return nil, err
	}

	observed, err := time.Parse(time.RFC3339, r.ObservedTime)
	if err != nil {
		return nil, err
	}

	return &tdf.ArrivalDeparture{
		EventType:         tdf.ArrivalDepartureType(r.EventType),
		StopRef:           r.StopRef,
		TripRef:           r.TripRef,
		VehicleIdentifier: r.VehicleIdentifier,
		BlockRef:          r.BlockRef,
		ScheduledTime:     scheduled,
		ObservedTime:      observed,
	}, nil
}

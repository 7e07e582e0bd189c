package tracker

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/tdf"
	"go.mongodb.org/mongo-driver/bson"
)

// StaticTripModel is an immutable in-memory snapshot of the scheduled trips
// used as matching targets. Built once at startup, safe for concurrent
// readers
type StaticTripModel struct {
	trips   map[string]*tdf.Trip
	byBlock map[string][]*tdf.Trip
	active  []*tdf.Trip
}

func NewStaticTripModel(trips []*tdf.Trip) *StaticTripModel {
	model := &StaticTripModel{
		trips:   map[string]*tdf.Trip{},
		byBlock: map[string][]*tdf.Trip{},
	}

	for _, trip := range trips {
		model.trips[trip.PrimaryIdentifier] = trip
		model.active = append(model.active, trip)

		if trip.BlockID != "" {
			model.byBlock[trip.BlockID] = append(model.byBlock[trip.BlockID], trip)
		}
	}

	return model
}

func (m *StaticTripModel) Trip(id string) *tdf.Trip {
	return m.trips[id]
}

func (m *StaticTripModel) ActiveTrips() []*tdf.Trip {
	return m.active
}

func (m *StaticTripModel) TripsForBlock(blockID string) []*tdf.Trip {
	return m.byBlock[blockID]
}

// LoadTripModel warm loads the schedule geometry from the trips collection
func LoadTripModel(ctx context.Context) (*StaticTripModel, error) {
	tripsCollection := database.GetCollection("trips")

	cursor, err := tripsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []*tdf.Trip
	for cursor.Next(ctx) {
		var trip *tdf.Trip
		if err := cursor.Decode(&trip); err != nil {
			log.Error().Err(err).Msg("Failed to decode Trip")
			continue
		}

		trips = append(trips, trip)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	log.Info().Int("count", len(trips)).Msg("Loaded trip model")

	return NewStaticTripModel(trips), nil
}

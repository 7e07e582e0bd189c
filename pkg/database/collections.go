package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createArrivalDepartureIndexes()
	createVehicleBlockAssignmentIndexes()
}

func createArrivalDepartureIndexes() {
	arrivalDeparturesCollection := GetCollection("arrival_departures")
	arrivalDeparturesIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tripref", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "observedtime", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "tripref", Value: 1},
				{Key: "observedtime", Value: 1},
			},
		},
	}

	opts := options.CreateIndexes()
	_, err := arrivalDeparturesCollection.Indexes().CreateMany(context.Background(), arrivalDeparturesIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createVehicleBlockAssignmentIndexes() {
	assignmentsCollection := GetCollection("vehicle_block_assignments")
	assignmentsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "assignmentid", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "vehicleidentifier", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := assignmentsCollection.Indexes().CreateMany(context.Background(), assignmentsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

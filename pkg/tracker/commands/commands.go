package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/tdf"
	"github.com/transitflow/transitflow/pkg/tracker"
	"go.mongodb.org/mongo-driver/bson"
)

// Commands implements the command boundary. Every operation returns nil on
// success or a descriptive error the remote caller can surface without
// treating the call as crashed
type Commands struct {
	Engine *tracker.Engine
}

func NewCommands(engine *tracker.Engine) *Commands {
	return &Commands{Engine: engine}
}

// PushAvl submits a single position report for processing
func (c *Commands) PushAvl(report *tdf.AvlReport) error {
	if err := report.Validate(); err != nil {
		return err
	}

	log.Debug().Str("vehicle", report.VehicleIdentifier).Msg("Processing AVL report")

	return c.Engine.Dispatcher.Submit(report)
}

// PushAvlBatch submits a collection of reports, processing every element
// even when some fail
func (c *Commands) PushAvlBatch(reports []*tdf.AvlReport) error {
	return c.Engine.Dispatcher.SubmitBatch(reports)
}

// SetVehicleUnpredictable clears a vehicle's match & predictions so it gets
// reassigned quickly
func (c *Commands) SetVehicleUnpredictable(vehicleID string) error {
	state := c.Engine.States.SetUnpredictable(vehicleID)

	c.Engine.PredictionCache.RemovePredictions(vehicleID)
	c.Engine.VehicleCache.UpdateVehicle(state.Snapshot())

	log.Info().Str("vehicle", vehicleID).Msg("Vehicle marked unpredictable by command")

	return nil
}

// CancelTrip suppresses prediction generation for the unique vehicle
// currently serving the trip. No-schedule trips are disambiguated by exact
// start time
func (c *Commands) CancelTrip(tripRef string, startTime time.Time) error {
	return c.setTripCanceled(tripRef, startTime, true)
}

// ReenableTrip reverses a previous CancelTrip
func (c *Commands) ReenableTrip(tripRef string, startTime time.Time) error {
	return c.setTripCanceled(tripRef, startTime, false)
}

func (c *Commands) setTripCanceled(tripRef string, startTime time.Time, canceled bool) error {
	state := c.Engine.States.StateForTrip(tripRef, startTime.Unix())
	if state == nil {
		return fmt.Errorf("trip %s is not currently available", tripRef)
	}

	lastReport := state.LastReport()
	if lastReport == nil {
		return fmt.Errorf("vehicle serving trip %s does not have an avl report", tripRef)
	}

	if canceled {
		c.Engine.CanceledTrips.Cancel(tripRef)
	} else {
		c.Engine.CanceledTrips.Reenable(tripRef)
	}

	state = c.Engine.States.SetCanceled(state.VehicleID, canceled)
	c.Engine.VehicleCache.UpdateVehicle(state.Snapshot())

	// Reprocess the vehicle's last report so serving state & predictions
	// reflect the new overlay
	return c.Engine.Dispatcher.Submit(lastReport)
}

// VehicleBlockAssignment is a persisted manual assignment of a vehicle to a
// block for a window of time
type VehicleBlockAssignment struct {
	AssignmentID string `bson:"assignmentid"`

	VehicleIdentifier string `bson:"vehicleidentifier"`
	BlockRef          string `bson:"blockref"`
	TripRef           string `bson:"tripref,omitempty"`

	AssignmentDate time.Time `bson:"assignmentdate"`
	ValidFrom      time.Time `bson:"validfrom"`
	ValidTo        time.Time `bson:"validto"`
}

// AddVehicleToBlock persists a manual vehicle to block assignment
func (c *Commands) AddVehicleToBlock(assignment VehicleBlockAssignment) error {
	if database.MongoGlobalInstance == nil {
		return errors.New("database is not connected")
	}
	if assignment.AssignmentID == "" {
		return errors.New("assignment requires an identifier")
	}
	if assignment.VehicleIdentifier == "" || assignment.BlockRef == "" {
		return errors.New("assignment requires a vehicle & block")
	}

	assignmentsCollection := database.GetCollection("vehicle_block_assignments")
	_, err := assignmentsCollection.InsertOne(context.Background(), assignment)

	return err
}

// RemoveVehicleToBlock deletes a previously created assignment
func (c *Commands) RemoveVehicleToBlock(assignmentID string) error {
	if database.MongoGlobalInstance == nil {
		return errors.New("database is not connected")
	}

	assignmentsCollection := database.GetCollection("vehicle_block_assignments")
	result, err := assignmentsCollection.DeleteOne(context.Background(), bson.M{"assignmentid": assignmentID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("no assignment found with id %s", assignmentID)
	}

	return nil
}

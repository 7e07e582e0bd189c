package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitflow/transitflow/pkg/tdf"
)

func fixtureMatchResult(trip *tdf.Trip, segmentIndex int, offset float64, recordedAt time.Time) *MatchResult {
	return &MatchResult{
		Trip:              trip,
		SegmentIndex:      segmentIndex,
		SegmentOffset:     offset,
		ScheduleAdherence: 30 * time.Second,
		RecordedAt:        recordedAt,
	}
}

func TestVehicleStateManager(t *testing.T) {
	trip := fixtureTrip("trip-1")
	report := fixtureReport("bus-1", 0.0025, 0, fixtureBase.Add(150*time.Second))

	t.Run("States are created lazily and reused", func(t *testing.T) {
		manager := NewVehicleStateManager()

		state := manager.GetState("bus-1")
		assert.Equal(t, "bus-1", state.VehicleID)
		assert.Same(t, state, manager.GetState("bus-1"))
		assert.Len(t, manager.States(), 1)
	})

	t.Run("Successful match makes the vehicle predictable", func(t *testing.T) {
		manager := NewVehicleStateManager()

		state := manager.ApplyMatch("bus-1", report, fixtureMatchResult(trip, 0, 0.5, report.RecordedAt))

		assert.True(t, state.Predictable())
		assert.Equal(t, report, state.LastReport())
		assert.Equal(t, "trip-1", state.Match().Trip.PrimaryIdentifier)
	})

	t.Run("No match makes the vehicle unmatched and unpredictable", func(t *testing.T) {
		manager := NewVehicleStateManager()
		manager.ApplyMatch("bus-1", report, fixtureMatchResult(trip, 0, 0.5, report.RecordedAt))

		state := manager.ApplyMatch("bus-1", report, nil)

		assert.False(t, state.Predictable())
		assert.Nil(t, state.Match())
		assert.Equal(t, report, state.LastReport())
	})

	t.Run("SetUnpredictable clears the match but keeps the last report", func(t *testing.T) {
		manager := NewVehicleStateManager()
		manager.ApplyMatch("bus-1", report, fixtureMatchResult(trip, 0, 0.5, report.RecordedAt))

		state := manager.SetUnpredictable("bus-1")

		assert.False(t, state.Predictable())
		assert.Nil(t, state.Match())
		assert.Equal(t, report, state.LastReport())
	})

	t.Run("SetCanceled on an unknown vehicle is tolerated", func(t *testing.T) {
		manager := NewVehicleStateManager()

		state := manager.SetCanceled("ghost", true)

		assert.True(t, state.Canceled())
		assert.Nil(t, state.Match())
	})
}

func TestVehicleStateSnapshot(t *testing.T) {
	trip := fixtureTrip("trip-1")
	trip.BlockID = "block-1"
	report := fixtureReport("bus-1", 0.0025, 0, fixtureBase.Add(150*time.Second))

	t.Run("Matched vehicle projects its trip and path position", func(t *testing.T) {
		manager := NewVehicleStateManager()
		state := manager.ApplyMatch("bus-1", report, fixtureMatchResult(trip, 1, 0.25, report.RecordedAt))

		vehicle := state.Snapshot()

		assert.Equal(t, "bus-1", vehicle.PrimaryIdentifier)
		assert.True(t, vehicle.Predictable)
		assert.Equal(t, "trip-1", vehicle.TripRef)
		assert.Equal(t, "route-10", vehicle.RouteID)
		assert.Equal(t, "10", vehicle.RouteShortName)
		assert.Equal(t, "block-1", vehicle.BlockRef)
		assert.Equal(t, 1, vehicle.SegmentIndex)
		assert.Equal(t, 0.25, vehicle.SegmentOffset)
		assert.Equal(t, 30*time.Second, vehicle.ScheduleAdherence)
		assert.Equal(t, "stop-b", vehicle.DepartedStopRef)
		assert.Equal(t, "stop-c", vehicle.NextStopRef)
		assert.Equal(t, report.RecordedAt, vehicle.RecordedAt)
		assert.Equal(t, report.Location, vehicle.Location)
	})

	t.Run("Unmatched vehicle projects only the report", func(t *testing.T) {
		manager := NewVehicleStateManager()
		state := manager.ApplyMatch("bus-1", report, nil)

		vehicle := state.Snapshot()

		assert.Equal(t, "bus-1", vehicle.PrimaryIdentifier)
		assert.False(t, vehicle.Predictable)
		assert.Equal(t, "", vehicle.TripRef)
		assert.Equal(t, report.RecordedAt, vehicle.RecordedAt)
	})
}

func TestStateQueries(t *testing.T) {
	report := fixtureReport("bus-1", 0.0025, 0, fixtureBase.Add(150*time.Second))

	t.Run("StatesForRoute only returns predictable vehicles on the route", func(t *testing.T) {
		manager := NewVehicleStateManager()

		onRoute := fixtureTrip("trip-1")
		offRoute := fixtureTrip("trip-2")
		offRoute.RouteID = "route-20"

		manager.ApplyMatch("bus-1", report, fixtureMatchResult(onRoute, 0, 0.5, report.RecordedAt))
		manager.ApplyMatch("bus-2", report, fixtureMatchResult(offRoute, 0, 0.5, report.RecordedAt))
		manager.ApplyMatch("bus-3", report, nil)

		states := manager.StatesForRoute("route-10")
		require.Len(t, states, 1)
		assert.Equal(t, "bus-1", states[0].VehicleID)
	})

	t.Run("StateForTrip finds the vehicle serving a scheduled trip", func(t *testing.T) {
		manager := NewVehicleStateManager()
		trip := fixtureTrip("trip-1")
		manager.ApplyMatch("bus-1", report, fixtureMatchResult(trip, 0, 0.5, report.RecordedAt))

		state := manager.StateForTrip("trip-1", 0)
		require.NotNil(t, state)
		assert.Equal(t, "bus-1", state.VehicleID)

		assert.Nil(t, manager.StateForTrip("trip-9", 0))
	})

	t.Run("No schedule trips require the exact start time", func(t *testing.T) {
		manager := NewVehicleStateManager()
		trip := fixtureTrip("trip-1")
		trip.NoSchedule = true
		manager.ApplyMatch("bus-1", report, fixtureMatchResult(trip, 0, 0.5, report.RecordedAt))

		assert.NotNil(t, manager.StateForTrip("trip-1", trip.StartTime.Unix()))
		assert.Nil(t, manager.StateForTrip("trip-1", trip.StartTime.Add(time.Hour).Unix()))
	})
}

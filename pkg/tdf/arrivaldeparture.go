package tdf

import "time"

type ArrivalDepartureType string

const (
	EventTypeArrival   ArrivalDepartureType = "Arrival"
	EventTypeDeparture ArrivalDepartureType = "Departure"
)

// ArrivalDeparture records a single observed stop event for a vehicle on a
// trip. Immutable once recorded
type ArrivalDeparture struct {
	EventType ArrivalDepartureType `groups:"basic" bson:",omitempty"`

	StopRef           string `groups:"basic" bson:",omitempty"`
	TripRef           string `groups:"basic" bson:",omitempty"`
	VehicleIdentifier string `groups:"basic" bson:",omitempty"`
	BlockRef          string `groups:"detailed" bson:",omitempty"`

	ScheduledTime time.Time `groups:"basic" bson:",omitempty"`
	ObservedTime  time.Time `groups:"basic" bson:",omitempty"`
}

func (e *ArrivalDeparture) IsArrival() bool {
	return e.EventType == EventTypeArrival
}

func (e *ArrivalDeparture) IsDeparture() bool {
	return e.EventType == EventTypeDeparture
}

// ScheduleAdherence is the signed offset between the observed and scheduled
// event times. Positive values mean the vehicle was running late
func (e *ArrivalDeparture) ScheduleAdherence() time.Duration {
	return e.ObservedTime.Sub(e.ScheduledTime)
}

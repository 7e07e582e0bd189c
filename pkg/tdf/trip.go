package tdf

import "time"

// Trip is a single scheduled run along a route, made up of path segments
// between consecutive stops
type Trip struct {
	PrimaryIdentifier string `groups:"basic" bson:",omitempty"`
	PatternIdentifier string `groups:"detailed" bson:",omitempty"`

	RouteID        string `groups:"basic" bson:",omitempty"`
	RouteShortName string `groups:"basic" bson:",omitempty"`
	BlockID        string `groups:"detailed" bson:",omitempty"`

	// NoSchedule trips are frequency based and only distinguishable from each
	// other by their exact start time
	NoSchedule bool      `groups:"detailed" bson:",omitempty"`
	StartTime  time.Time `groups:"basic" bson:",omitempty"`

	Path []*PathSegment `groups:"detailed" bson:",omitempty"`
}

// PathSegment is the scheduled leg between two consecutive stops on a trip
type PathSegment struct {
	OriginStopRef      string `groups:"basic" bson:",omitempty"`
	DestinationStopRef string `groups:"basic" bson:",omitempty"`

	OriginDepartureTime    time.Time `groups:"basic" bson:",omitempty"`
	DestinationArrivalTime time.Time `groups:"basic" bson:",omitempty"`

	Track []Location `groups:"detailed" bson:",omitempty"`
}

// TraversalTime is how long the schedule allows for this segment
func (s *PathSegment) TraversalTime() time.Duration {
	return s.DestinationArrivalTime.Sub(s.OriginDepartureTime)
}

// TripModel provides read-only access to the static schedule geometry used as
// matching targets. Implementations must be safe for concurrent readers
type TripModel interface {
	Trip(id string) *Trip
	ActiveTrips() []*Trip
	TripsForBlock(blockID string) []*Trip
}

package tdf

import "time"

// Vehicle is the serving snapshot of a tracked vehicle handed to query
// clients. Entries are replaced wholesale so readers always see a complete
// value - the basic group covers the lightweight form, detailed adds the
// extended fields
type Vehicle struct {
	PrimaryIdentifier string `groups:"basic"`

	Location   Location  `groups:"basic"`
	Bearing    float64   `groups:"basic" json:",omitempty"`
	Speed      float64   `groups:"detailed" json:",omitempty"`
	RecordedAt time.Time `groups:"basic"`

	TripRef        string `groups:"basic" json:",omitempty"`
	RouteID        string `groups:"basic" json:",omitempty"`
	RouteShortName string `groups:"basic" json:",omitempty"`
	BlockRef       string `groups:"detailed" json:",omitempty"`

	TripStartTime time.Time `groups:"detailed" json:",omitempty"`

	Predictable bool `groups:"basic"`
	Canceled    bool `groups:"basic"`

	SegmentIndex      int           `groups:"detailed"`
	SegmentOffset     float64       `groups:"detailed"`
	ScheduleAdherence time.Duration `groups:"detailed"`

	DepartedStopRef string `groups:"detailed" json:",omitempty"`
	NextStopRef     string `groups:"detailed" json:",omitempty"`
}

// StopPrediction is a single predicted stop arrival for a vehicle, with the
// error margin derived from the prediction error model
type StopPrediction struct {
	StopRef           string `groups:"basic"`
	TripRef           string `groups:"basic"`
	VehicleIdentifier string `groups:"basic"`

	PredictedArrival   time.Time `groups:"basic"`
	PredictedDeparture time.Time `groups:"basic" json:",omitempty"`

	ErrorMarginSeconds float64 `groups:"detailed"`
}

package tdf

import "time"

// AvlReport is a single timestamped vehicle position observation, plus any
// assignment hints the feed supplied alongside it
type AvlReport struct {
	VehicleIdentifier string `groups:"basic"`

	Location   Location  `groups:"basic"`
	Bearing    float64   `groups:"basic" json:",omitempty"`
	Speed      float64   `groups:"basic" json:",omitempty"`
	RecordedAt time.Time `groups:"basic"`

	DeclaredTripRef  string `groups:"detailed" json:",omitempty"`
	DeclaredBlockRef string `groups:"detailed" json:",omitempty"`

	DataSource string `groups:"detailed" json:",omitempty"`
}

// Validate tolerates a nil receiver - a JSON null payload decodes into a nil
// report without an unmarshal error
func (r *AvlReport) Validate() error {
	if r == nil {
		return ErrEmptyReport
	}
	if r.VehicleIdentifier == "" {
		return ErrMissingVehicleIdentifier
	}
	if len(r.Location.Coordinates) != 2 {
		return ErrMissingLocation
	}
	if r.RecordedAt.IsZero() {
		return ErrMissingTimestamp
	}

	return nil
}

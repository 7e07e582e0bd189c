package tdf

import "fmt"

// Indices locates a position within a trip's scheduled path. Two Indices are
// equal iff the trip & segment match - the sub-segment offset is advisory only
// and excluded from equality
type Indices struct {
	TripRef      string
	SegmentIndex int

	SegmentOffset float64
}

func (i Indices) Equal(other Indices) bool {
	return i.TripRef == other.TripRef && i.SegmentIndex == other.SegmentIndex
}

func (i Indices) String() string {
	return fmt.Sprintf("%s:%d", i.TripRef, i.SegmentIndex)
}

// TripKey identifies a trip instance for history lookups. The StartDate
// qualifier separates runs of the same trip on different days
type TripKey struct {
	TripRef   string
	StartDate string
}

func (k TripKey) String() string {
	if k.StartDate == "" {
		return k.TripRef
	}

	return fmt.Sprintf("%s:%s", k.TripRef, k.StartDate)
}

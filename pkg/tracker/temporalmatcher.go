package tracker

import (
	"math"
	"sync"
	"time"

	"github.com/transitflow/transitflow/pkg/tdf"
)

// MatchResult is a successful association of an AVL report with a position
// along a trip's scheduled path
type MatchResult struct {
	Trip          *tdf.Trip
	SegmentIndex  int
	SegmentOffset float64

	SpatialDeviation  float64
	ScheduleAdherence time.Duration

	RecordedAt time.Time
}

func (r *MatchResult) Indices() tdf.Indices {
	return tdf.Indices{
		TripRef:       r.Trip.PrimaryIdentifier,
		SegmentIndex:  r.SegmentIndex,
		SegmentOffset: r.SegmentOffset,
	}
}

// CanceledTrips tracks trips removed from candidate search until re-enabled
type CanceledTrips struct {
	trips sync.Map // trip ref -> struct{}
}

func (c *CanceledTrips) Cancel(tripRef string) {
	c.trips.Store(tripRef, struct{}{})
}

func (c *CanceledTrips) Reenable(tripRef string) {
	c.trips.Delete(tripRef)
}

func (c *CanceledTrips) IsCanceled(tripRef string) bool {
	_, ok := c.trips.Load(tripRef)
	return ok
}

// TemporalMatcher finds the best matching trip path position for an incoming
// position report given the vehicle's previous state
type TemporalMatcher struct {
	Config   MatcherConfig
	Canceled *CanceledTrips
}

func NewTemporalMatcher(config MatcherConfig, canceled *CanceledTrips) *TemporalMatcher {
	return &TemporalMatcher{
		Config:   config,
		Canceled: canceled,
	}
}

// scoredCandidate is one (trip, segment) pairing with its deviations. The
// candidate list is built first & then reduced with an explicit min-by-score
// so the tie-break policy stays auditable
type scoredCandidate struct {
	trip          *tdf.Trip
	segmentIndex  int
	segmentOffset float64

	spatialDeviation  float64
	temporalDeviation float64

	// Segments advanced relative to the previous match, used as the tie-break
	forwardJump int
}

func (c *scoredCandidate) score(temporalWeight float64) float64 {
	return c.spatialDeviation + temporalWeight*c.temporalDeviation
}

// Match returns the minimum-score candidate satisfying the hard constraints,
// or nil for the NoMatch outcome. NoMatch is a normal result - the caller
// transitions the vehicle to unmatched rather than raising an error
func (m *TemporalMatcher) Match(previous *VehicleState, report *tdf.AvlReport, model tdf.TripModel) *MatchResult {
	var previousMatch *MatchResult
	if previous != nil {
		previousMatch = previous.Match()
	}

	candidates := m.buildCandidates(previousMatch, report, model)

	best := reduceCandidates(candidates, m.Config.TemporalDeviationWeight)
	if best == nil {
		return nil
	}

	segment := best.trip.Path[best.segmentIndex]
	expected := expectedTimeAtPosition(segment, best.segmentOffset)

	return &MatchResult{
		Trip:              best.trip,
		SegmentIndex:      best.segmentIndex,
		SegmentOffset:     best.segmentOffset,
		SpatialDeviation:  best.spatialDeviation,
		ScheduleAdherence: report.RecordedAt.Sub(expected),
		RecordedAt:        report.RecordedAt,
	}
}

func (m *TemporalMatcher) buildCandidates(previousMatch *MatchResult, report *tdf.AvlReport, model tdf.TripModel) []scoredCandidate {
	var candidates []scoredCandidate

	if previousMatch != nil {
		// Search forward of the previous match on the same trip
		trip := previousMatch.Trip
		lastSegment := previousMatch.SegmentIndex + m.Config.MaxForwardSegments
		if lastSegment > len(trip.Path)-1 {
			lastSegment = len(trip.Path) - 1
		}

		for index := previousMatch.SegmentIndex; index <= lastSegment; index++ {
			candidates = m.appendCandidate(candidates, trip, index, previousMatch, report)
		}

		return candidates
	}

	// Unmatched vehicle - search across the currently active trips, narrowed
	// by any declared assignment hints on the report
	for _, trip := range m.candidateTrips(report, model) {
		for index := range trip.Path {
			candidates = m.appendCandidate(candidates, trip, index, nil, report)
		}
	}

	return candidates
}

// candidateTrips selects the trips an unmatched vehicle may be assigned to.
// Canceled trips are excluded here - a vehicle already matched to a canceled
// trip keeps following it, the overlay only suppresses predictions
func (m *TemporalMatcher) candidateTrips(report *tdf.AvlReport, model tdf.TripModel) []*tdf.Trip {
	if report.DeclaredTripRef != "" {
		if trip := model.Trip(report.DeclaredTripRef); trip != nil {
			return m.withoutCanceled([]*tdf.Trip{trip})
		}
	}

	if report.DeclaredBlockRef != "" && m.Config.RequireDeclaredBlock {
		return m.withoutCanceled(model.TripsForBlock(report.DeclaredBlockRef))
	}

	return m.withoutCanceled(model.ActiveTrips())
}

func (m *TemporalMatcher) withoutCanceled(trips []*tdf.Trip) []*tdf.Trip {
	if m.Canceled == nil {
		return trips
	}

	var remaining []*tdf.Trip
	for _, trip := range trips {
		if !m.Canceled.IsCanceled(trip.PrimaryIdentifier) {
			remaining = append(remaining, trip)
		}
	}

	return remaining
}

func (m *TemporalMatcher) appendCandidate(candidates []scoredCandidate, trip *tdf.Trip, segmentIndex int, previousMatch *MatchResult, report *tdf.AvlReport) []scoredCandidate {
	segment := trip.Path[segmentIndex]
	spatial, offset, ok := deviationFromSegment(&report.Location, segment)
	if !ok {
		return candidates
	}

	// Hard constraint: maximum allowed spatial deviation
	if spatial > m.Config.MaxMatchDistanceMetres {
		return candidates
	}

	// Hard constraint: non-decreasing progress along the trip
	forwardJump := 0
	if previousMatch != nil {
		forwardJump = segmentIndex - previousMatch.SegmentIndex
		if forwardJump == 0 && offset < previousMatch.SegmentOffset-m.Config.SegmentOffsetTolerance {
			return candidates
		}
	}

	// Hard constraint: declared block must match when the hint is enforced
	if m.Config.RequireDeclaredBlock && report.DeclaredBlockRef != "" && trip.BlockID != "" && trip.BlockID != report.DeclaredBlockRef {
		return candidates
	}

	expected := expectedTimeAtPosition(segment, offset)
	temporal := math.Abs(report.RecordedAt.Sub(expected).Seconds())

	return append(candidates, scoredCandidate{
		trip:              trip,
		segmentIndex:      segmentIndex,
		segmentOffset:     offset,
		spatialDeviation:  spatial,
		temporalDeviation: temporal,
		forwardJump:       forwardJump,
	})
}

// reduceCandidates selects the minimum-score candidate, breaking score ties
// by preferring the smallest forward jump
func reduceCandidates(candidates []scoredCandidate, temporalWeight float64) *scoredCandidate {
	var best *scoredCandidate

	for i := range candidates {
		candidate := &candidates[i]

		if best == nil {
			best = candidate
			continue
		}

		candidateScore := candidate.score(temporalWeight)
		bestScore := best.score(temporalWeight)

		if candidateScore < bestScore {
			best = candidate
		} else if candidateScore == bestScore && candidate.forwardJump < best.forwardJump {
			best = candidate
		}
	}

	return best
}

// deviationFromSegment returns the distance in metres from the report
// location to the segment's track and how far along the segment the closest
// point sits. Segments without usable track geometry cannot be matched
func deviationFromSegment(location *tdf.Location, segment *tdf.PathSegment) (float64, float64, bool) {
	if len(segment.Track) < 2 {
		return 0, 0, false
	}

	closestDistance := math.MaxFloat64
	closestOffset := 0.0

	for i := 0; i < len(segment.Track)-1; i++ {
		distance, fraction := location.DistanceFromLine(segment.Track[i], segment.Track[i+1])

		if distance < closestDistance {
			closestDistance = distance

			// Rough position along the whole segment based on which track
			// piece the closest point falls on
			closestOffset = (float64(i) + fraction) / float64(len(segment.Track)-1)
		}
	}

	return closestDistance, closestOffset, true
}

func expectedTimeAtPosition(segment *tdf.PathSegment, offset float64) time.Time {
	traversal := segment.TraversalTime()
	return segment.OriginDepartureTime.Add(time.Duration(offset * float64(traversal.Nanoseconds())))
}

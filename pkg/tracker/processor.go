package tracker

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/tdf"
	"github.com/transitflow/transitflow/pkg/tracker/datacache"
)

// Processor runs a single report through the full pipeline: temporal match,
// vehicle state update, arrival/departure detection, error model update &
// serving cache refresh. Each cache update commits independently - there is
// no cross cache transaction
type Processor struct {
	Matcher *TemporalMatcher
	States  *VehicleStateManager
	Model   tdf.TripModel

	ErrorCache      *datacache.ErrorCache
	TripHistory     *datacache.TripDataHistoryCache
	VehicleCache    *datacache.VehicleDataCache
	PredictionCache *datacache.PredictionDataCache
}

func (p *Processor) ProcessReport(report *tdf.AvlReport) error {
	if err := report.Validate(); err != nil {
		return err
	}

	state := p.States.GetState(report.VehicleIdentifier)
	previousMatch := state.Match()

	result := p.Matcher.Match(state, report, p.Model)

	state = p.States.ApplyMatch(report.VehicleIdentifier, report, result)

	recordMatchEvent(report, result)

	if result == nil {
		log.Debug().Str("vehicle", report.VehicleIdentifier).Msg("No match for report")

		p.PredictionCache.RemovePredictions(report.VehicleIdentifier)
		p.VehicleCache.UpdateVehicle(state.Snapshot())

		return nil
	}

	for _, detected := range detectStopEvents(previousMatch, result, report) {
		p.recordStopEvent(state, result, detected)
	}

	if state.Canceled() {
		// The match is kept while a trip is canceled, prediction generation
		// is suppressed
		p.PredictionCache.RemovePredictions(report.VehicleIdentifier)
	} else {
		p.PredictionCache.UpdatePredictions(report.VehicleIdentifier, p.generatePredictions(result, report))
	}

	p.VehicleCache.UpdateVehicle(state.Snapshot())

	return nil
}

// stopEvent pairs a detected arrival/departure with the path position it was
// detected at, which keys the error model update
type stopEvent struct {
	event        *tdf.ArrivalDeparture
	segmentIndex int
}

// detectStopEvents emits the arrival & departure events implied by the match
// advancing past segment boundaries since the previous report
func detectStopEvents(previousMatch *MatchResult, result *MatchResult, report *tdf.AvlReport) []stopEvent {
	if previousMatch == nil || previousMatch.Trip.PrimaryIdentifier != result.Trip.PrimaryIdentifier {
		return nil
	}

	var events []stopEvent

	for index := previousMatch.SegmentIndex; index < result.SegmentIndex; index++ {
		segment := result.Trip.Path[index]

		events = append(events, stopEvent{
			segmentIndex: index,
			event: &tdf.ArrivalDeparture{
				EventType:         tdf.EventTypeArrival,
				StopRef:           segment.DestinationStopRef,
				TripRef:           result.Trip.PrimaryIdentifier,
				VehicleIdentifier: report.VehicleIdentifier,
				BlockRef:          result.Trip.BlockID,
				ScheduledTime:     segment.DestinationArrivalTime,
				ObservedTime:      report.RecordedAt,
			},
		})

		next := result.Trip.Path[index+1]
		events = append(events, stopEvent{
			segmentIndex: index + 1,
			event: &tdf.ArrivalDeparture{
				EventType:         tdf.EventTypeDeparture,
				StopRef:           next.OriginStopRef,
				TripRef:           result.Trip.PrimaryIdentifier,
				VehicleIdentifier: report.VehicleIdentifier,
				BlockRef:          result.Trip.BlockID,
				ScheduledTime:     next.OriginDepartureTime,
				ObservedTime:      report.RecordedAt,
			},
		})
	}

	return events
}

func (p *Processor) recordStopEvent(state *VehicleState, result *MatchResult, detected stopEvent) {
	event := detected.event

	p.TripHistory.PutArrivalDeparture(event)
	state.setLastEvent(event)

	variant := datacache.VariantTravelTime
	if event.IsDeparture() {
		variant = datacache.VariantDwellTime
	}

	key := datacache.KeyForIndices(tdf.Indices{
		TripRef:      event.TripRef,
		SegmentIndex: detected.segmentIndex,
	}, result.Trip.PatternIdentifier, variant, dayType(event.ObservedTime))

	errorSeconds := event.ScheduleAdherence().Seconds()
	p.ErrorCache.PutErrorValue(key, errorSeconds*errorSeconds)
}

// generatePredictions projects the remaining stops of the matched trip,
// shifting the scheduled times by the observed adherence & attaching the
// error model's margin where we have one
func (p *Processor) generatePredictions(result *MatchResult, report *tdf.AvlReport) []*tdf.StopPrediction {
	var predictions []*tdf.StopPrediction

	for index := result.SegmentIndex; index < len(result.Trip.Path); index++ {
		segment := result.Trip.Path[index]

		prediction := &tdf.StopPrediction{
			StopRef:           segment.DestinationStopRef,
			TripRef:           result.Trip.PrimaryIdentifier,
			VehicleIdentifier: report.VehicleIdentifier,
			PredictedArrival:  segment.DestinationArrivalTime.Add(result.ScheduleAdherence),
		}

		if index < len(result.Trip.Path)-1 {
			next := result.Trip.Path[index+1]

			departure := next.OriginDepartureTime
			if prediction.PredictedArrival.After(departure) {
				departure = prediction.PredictedArrival
			}
			prediction.PredictedDeparture = departure
		}

		key := datacache.KeyForIndices(tdf.Indices{
			TripRef:      result.Trip.PrimaryIdentifier,
			SegmentIndex: index,
		}, result.Trip.PatternIdentifier, datacache.VariantTravelTime, dayType(report.RecordedAt))

		if variance, ok := p.ErrorCache.GetErrorValue(key); ok {
			prediction.ErrorMarginSeconds = math.Sqrt(variance)
		}

		predictions = append(predictions, prediction)
	}

	return predictions
}

func dayType(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return "weekend"
	default:
		return "weekday"
	}
}

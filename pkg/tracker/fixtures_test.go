package tracker

import (
	"time"

	"github.com/transitflow/transitflow/pkg/tdf"
)

// At the equator 0.001 degrees of longitude is roughly 111 metres, which
// keeps the geometry in these fixtures easy to reason about
var fixtureBase = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixturePoint(longitude float64, latitude float64) tdf.Location {
	return tdf.Location{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

// fixtureTrip is a two segment trip running east along the equator:
// stop A (0, 0) -> stop B (0.005, 0) -> stop C (0.010, 0)
func fixtureTrip(id string) *tdf.Trip {
	return &tdf.Trip{
		PrimaryIdentifier: id,
		PatternIdentifier: "pattern-" + id,
		RouteID:           "route-10",
		RouteShortName:    "10",
		StartTime:         fixtureBase,
		Path: []*tdf.PathSegment{
			{
				OriginStopRef:          "stop-a",
				DestinationStopRef:     "stop-b",
				OriginDepartureTime:    fixtureBase,
				DestinationArrivalTime: fixtureBase.Add(5 * time.Minute),
				Track:                  []tdf.Location{fixturePoint(0, 0), fixturePoint(0.005, 0)},
			},
			{
				OriginStopRef:          "stop-b",
				DestinationStopRef:     "stop-c",
				OriginDepartureTime:    fixtureBase.Add(6 * time.Minute),
				DestinationArrivalTime: fixtureBase.Add(11 * time.Minute),
				Track:                  []tdf.Location{fixturePoint(0.005, 0), fixturePoint(0.010, 0)},
			},
		},
	}
}

func fixtureMatcherConfig() MatcherConfig {
	return MatcherConfig{
		MaxMatchDistanceMetres:  250.0,
		TemporalDeviationWeight: 0.1,
		SegmentOffsetTolerance:  0.05,
		MaxForwardSegments:      3,
		RequireDeclaredBlock:    true,
	}
}

func fixtureConfig() Config {
	return Config{
		Matcher:    fixtureMatcherConfig(),
		Dispatcher: DispatcherConfig{Workers: 4, QueueSize: 64},
		History:    HistoryConfig{RetentionWindow: 4 * time.Hour, MaxEventsPerTrip: 200},
	}
}

func fixtureReport(vehicleID string, longitude float64, latitude float64, recordedAt time.Time) *tdf.AvlReport {
	return &tdf.AvlReport{
		VehicleIdentifier: vehicleID,
		Location:          fixturePoint(longitude, latitude),
		RecordedAt:        recordedAt,
		DataSource:        "Test",
	}
}

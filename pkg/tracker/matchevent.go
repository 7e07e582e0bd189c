package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/transitflow/transitflow/pkg/elastic_client"
	"github.com/transitflow/transitflow/pkg/tdf"
)

type MatchElasticEvent struct {
	Timestamp time.Time

	Success bool

	VehicleIdentifier string
	TripRef           string
	SpatialDeviation  float64

	DataSource string
}

// recordMatchEvent exports the outcome of a match attempt for offline
// analysis. A no-op when Elasticsearch is not configured
func recordMatchEvent(report *tdf.AvlReport, result *MatchResult) {
	yearNumber, weekNumber := time.Now().ISOWeek()
	indexName := fmt.Sprintf("match-events-%d-%d", yearNumber, weekNumber)

	event := MatchElasticEvent{
		Timestamp: time.Now(),

		Success: result != nil,

		VehicleIdentifier: report.VehicleIdentifier,
		DataSource:        report.DataSource,
	}

	if result != nil {
		event.TripRef = result.Trip.PrimaryIdentifier
		event.SpatialDeviation = result.SpatialDeviation
	}

	document, _ := json.Marshal(event)
	elastic_client.IndexRequest(indexName, bytes.NewReader(document))
}

package tracker

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type MatcherConfig struct {
	// Hard limit on how far a vehicle can be from a candidate segment
	MaxMatchDistanceMetres float64 `yaml:"max_match_distance_metres"`

	// Weight applied to the temporal deviation (seconds) when combined with
	// the spatial deviation (metres) into a match score
	TemporalDeviationWeight float64 `yaml:"temporal_deviation_weight"`

	// How far backwards along the current segment a vehicle may appear to
	// slip before the candidate is treated as regressing
	SegmentOffsetTolerance float64 `yaml:"segment_offset_tolerance"`

	// How many segments ahead of the previous match to consider on the same
	// trip
	MaxForwardSegments int `yaml:"max_forward_segments"`

	// When set, a report carrying a declared block restricts candidates to
	// trips on that block
	RequireDeclaredBlock bool `yaml:"require_declared_block"`
}

type DispatcherConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type HistoryConfig struct {
	RetentionWindow  time.Duration `yaml:"retention_window"`
	MaxEventsPerTrip int           `yaml:"max_events_per_trip"`
}

type Config struct {
	Matcher    MatcherConfig    `yaml:"matcher"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	History    HistoryConfig    `yaml:"history"`
}

var defaultConfig = Config{
	Matcher: MatcherConfig{
		MaxMatchDistanceMetres:  250.0,
		TemporalDeviationWeight: 0.1,
		SegmentOffsetTolerance:  0.05,
		MaxForwardSegments:      3,
		RequireDeclaredBlock:    true,
	},
	Dispatcher: DispatcherConfig{
		Workers:   8,
		QueueSize: 512,
	},
	History: HistoryConfig{
		RetentionWindow:  4 * time.Hour,
		MaxEventsPerTrip: 200,
	},
}

// GetConfig returns the tracker configuration, starting from the defaults,
// then applying the YAML file named by TRANSITFLOW_TRACKER_CONFIG (if any),
// then individual environment variable overrides
func GetConfig() (Config, error) {
	config := defaultConfig

	if path := os.Getenv("TRANSITFLOW_TRACKER_CONFIG"); path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return config, err
		}

		if err := yaml.Unmarshal(contents, &config); err != nil {
			return config, err
		}
	}

	if val := os.Getenv("TRACKER_MAX_MATCH_DISTANCE_METRES"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.Matcher.MaxMatchDistanceMetres = parsed
		}
	}

	if val := os.Getenv("TRACKER_DISPATCHER_WORKERS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Dispatcher.Workers = parsed
		}
	}

	if val := os.Getenv("TRACKER_HISTORY_RETENTION_WINDOW"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.History.RetentionWindow = parsed
		}
	}

	return config, nil
}

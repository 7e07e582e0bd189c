package datacache

import (
	"sync"

	"github.com/transitflow/transitflow/pkg/tdf"
)

type ErrorVariant string

const (
	VariantTravelTime ErrorVariant = "travel"
	VariantDwellTime  ErrorVariant = "dwell"
)

// KalmanErrorCacheKey identifies a single error estimate. It is derived from
// Indices but keyed on the pattern rather than the trip instance so
// structurally equivalent runs share statistics. The variant & day type
// discriminators keep travel vs dwell and weekday vs weekend estimates apart
type KalmanErrorCacheKey struct {
	PatternRef   string
	SegmentIndex int

	Variant ErrorVariant
	DayType string
}

// KeyForIndices builds an error cache key from a path position. patternRef
// should be the trip's pattern identifier where one exists, falling back to
// the trip identifier itself
func KeyForIndices(indices tdf.Indices, patternRef string, variant ErrorVariant, dayType string) KalmanErrorCacheKey {
	if patternRef == "" {
		patternRef = indices.TripRef
	}

	return KalmanErrorCacheKey{
		PatternRef:   patternRef,
		SegmentIndex: indices.SegmentIndex,
		Variant:      variant,
		DayType:      dayType,
	}
}

type errorCacheEntry struct {
	mu       sync.Mutex
	estimate Estimate
	seeded   bool
}

// ErrorCache holds the running prediction error estimate per key. Distinct
// keys never contend with each other - the read-modify-write on a single key
// is serialised by that entry's own lock
type ErrorCache struct {
	entries sync.Map // KalmanErrorCacheKey -> *errorCacheEntry

	ObservationVariance float64
}

const defaultObservationVariance = 400.0

func NewErrorCache() *ErrorCache {
	return &ErrorCache{
		ObservationVariance: defaultObservationVariance,
	}
}

// GetErrorValue returns the current estimate for a key. The second return is
// false when we have no history for the key - callers must treat that as "no
// confidence", not as zero error
func (c *ErrorCache) GetErrorValue(key KalmanErrorCacheKey) (float64, bool) {
	value, ok := c.entries.Load(key)
	if !ok {
		return 0, false
	}

	entry := value.(*errorCacheEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.seeded {
		return 0, false
	}

	return entry.estimate.Value, true
}

// GetEstimate returns the full estimate including its variance
func (c *ErrorCache) GetEstimate(key KalmanErrorCacheKey) (Estimate, bool) {
	value, ok := c.entries.Load(key)
	if !ok {
		return Estimate{}, false
	}

	entry := value.(*errorCacheEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.seeded {
		return Estimate{}, false
	}

	return entry.estimate, true
}

// PutErrorValue blends a newly observed error into the estimate for a key
func (c *ErrorCache) PutErrorValue(key KalmanErrorCacheKey, observedError float64) {
	value, _ := c.entries.LoadOrStore(key, &errorCacheEntry{})

	entry := value.(*errorCacheEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.seeded {
		entry.estimate = NewEstimate(observedError)
		entry.seeded = true
		return
	}

	entry.estimate = Blend(entry.estimate, observedError, c.ObservationVariance)
}

// Keys returns every key currently held, for diagnostics & export
func (c *ErrorCache) Keys() []KalmanErrorCacheKey {
	var keys []KalmanErrorCacheKey

	c.entries.Range(func(key, value any) bool {
		keys = append(keys, key.(KalmanErrorCacheKey))
		return true
	})

	return keys
}

package datacache

// Estimate is a running prediction error estimate together with the
// confidence we have in it
type Estimate struct {
	Value    float64
	Variance float64
}

const (
	// Starting variance for a key we have never observed before - high so
	// early observations dominate
	initialVariance = 1000.0

	// Variance added back on every update so the gain never collapses to zero
	// and the filter keeps adapting to recent observations
	processNoise = 0.5
)

// Blend folds a new observed error into the prior estimate using a
// variance-weighted gain. The result always lands between the prior value and
// the observation - a single noisy sample can pull the estimate towards
// itself but never past itself
func Blend(prior Estimate, observed float64, observationVariance float64) Estimate {
	gain := prior.Variance / (prior.Variance + observationVariance)

	return Estimate{
		Value:    prior.Value + gain*(observed-prior.Value),
		Variance: (1-gain)*prior.Variance + processNoise,
	}
}

// NewEstimate seeds the filter from the first observation of a key
func NewEstimate(observed float64) Estimate {
	return Estimate{
		Value:    observed,
		Variance: initialVariance,
	}
}

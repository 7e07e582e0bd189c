package tracker

import (
	"github.com/transitflow/transitflow/pkg/tdf"
	"github.com/transitflow/transitflow/pkg/tracker/datacache"
)

// Engine wires the full realtime core together: matcher, state manager,
// statistical caches, serving caches & the dispatcher feeding them. It is an
// injectable component with an explicit lifecycle rather than a set of
// process-wide singletons
type Engine struct {
	Config Config
	Model  tdf.TripModel

	Matcher       *TemporalMatcher
	States        *VehicleStateManager
	CanceledTrips *CanceledTrips

	ErrorCache      *datacache.ErrorCache
	TripHistory     *datacache.TripDataHistoryCache
	VehicleCache    *datacache.VehicleDataCache
	PredictionCache *datacache.PredictionDataCache

	Processor  *Processor
	Dispatcher *AvlDispatcher
}

func NewEngine(config Config, model tdf.TripModel) *Engine {
	canceled := &CanceledTrips{}

	engine := &Engine{
		Config: config,
		Model:  model,

		Matcher:       NewTemporalMatcher(config.Matcher, canceled),
		States:        NewVehicleStateManager(),
		CanceledTrips: canceled,

		ErrorCache:      datacache.NewErrorCache(),
		TripHistory:     datacache.NewTripDataHistoryCache(),
		VehicleCache:    datacache.NewVehicleDataCache(),
		PredictionCache: datacache.NewPredictionDataCache(),
	}

	if config.History.RetentionWindow > 0 {
		engine.TripHistory.RetentionWindow = config.History.RetentionWindow
	}
	if config.History.MaxEventsPerTrip > 0 {
		engine.TripHistory.MaxEventsPerTrip = config.History.MaxEventsPerTrip
	}

	engine.Processor = &Processor{
		Matcher: engine.Matcher,
		States:  engine.States,
		Model:   model,

		ErrorCache:      engine.ErrorCache,
		TripHistory:     engine.TripHistory,
		VehicleCache:    engine.VehicleCache,
		PredictionCache: engine.PredictionCache,
	}

	engine.Dispatcher = NewAvlDispatcher(config.Dispatcher, engine.Processor.ProcessReport)

	return engine
}

// Start brings up the dispatcher workers
func (e *Engine) Start() {
	e.Dispatcher.Start()
}

// Stop drains in-flight reports & shuts the workers down
func (e *Engine) Stop() {
	e.Dispatcher.Stop()
}

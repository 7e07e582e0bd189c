package tracker

import (
	"sync"

	"github.com/jinzhu/copier"
	"github.com/transitflow/transitflow/pkg/tdf"
)

// VehicleState is the authoritative mutable record for one vehicle. Field
// mutation goes through the small locked setters - reports for a vehicle are
// additionally serialised by the dispatcher, the lock covers command-path
// writers arriving from other goroutines
type VehicleState struct {
	VehicleID string

	mu sync.Mutex

	lastReport  *tdf.AvlReport
	match       *MatchResult
	predictable bool
	canceled    bool
	lastEvent   *tdf.ArrivalDeparture
}

func (s *VehicleState) LastReport() *tdf.AvlReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

func (s *VehicleState) Match() *MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match
}

func (s *VehicleState) Predictable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.predictable
}

func (s *VehicleState) Canceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

func (s *VehicleState) LastEvent() *tdf.ArrivalDeparture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvent
}

func (s *VehicleState) setLastEvent(event *tdf.ArrivalDeparture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEvent = event
}

// Snapshot projects the state into an immutable serving record
func (s *VehicleState) Snapshot() *tdf.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()

	vehicle := &tdf.Vehicle{
		PrimaryIdentifier: s.VehicleID,
		Predictable:       s.predictable,
		Canceled:          s.canceled,
	}

	if s.lastReport != nil {
		copier.Copy(vehicle, s.lastReport)
		vehicle.PrimaryIdentifier = s.VehicleID
	}

	if s.match != nil {
		vehicle.TripRef = s.match.Trip.PrimaryIdentifier
		vehicle.RouteID = s.match.Trip.RouteID
		vehicle.RouteShortName = s.match.Trip.RouteShortName
		vehicle.BlockRef = s.match.Trip.BlockID
		vehicle.TripStartTime = s.match.Trip.StartTime
		vehicle.SegmentIndex = s.match.SegmentIndex
		vehicle.SegmentOffset = s.match.SegmentOffset
		vehicle.ScheduleAdherence = s.match.ScheduleAdherence

		segment := s.match.Trip.Path[s.match.SegmentIndex]
		vehicle.DepartedStopRef = segment.OriginStopRef
		vehicle.NextStopRef = segment.DestinationStopRef
	}

	return vehicle
}

// VehicleStateManager is the single authoritative mapping from vehicle
// identifier to state. States are created lazily & never deleted
type VehicleStateManager struct {
	states sync.Map // vehicle identifier -> *VehicleState
}

func NewVehicleStateManager() *VehicleStateManager {
	return &VehicleStateManager{}
}

// GetState returns the state for a vehicle, creating a default record on
// first sight
func (m *VehicleStateManager) GetState(vehicleID string) *VehicleState {
	value, _ := m.states.LoadOrStore(vehicleID, &VehicleState{VehicleID: vehicleID})
	return value.(*VehicleState)
}

// ApplyMatch records the outcome of matching a report. A nil result is the
// NoMatch outcome - the vehicle becomes unmatched & unpredictable, which is a
// normal state transition rather than an error
func (m *VehicleStateManager) ApplyMatch(vehicleID string, report *tdf.AvlReport, result *MatchResult) *VehicleState {
	state := m.GetState(vehicleID)

	state.mu.Lock()
	defer state.mu.Unlock()

	state.lastReport = report

	if result == nil {
		state.match = nil
		state.predictable = false
		return state
	}

	state.match = result
	state.predictable = true

	return state
}

// SetCanceled toggles the canceled overlay. Cancelling an unmatched vehicle
// is accepted as a no-op transition
func (m *VehicleStateManager) SetCanceled(vehicleID string, canceled bool) *VehicleState {
	state := m.GetState(vehicleID)

	state.mu.Lock()
	defer state.mu.Unlock()
	state.canceled = canceled

	return state
}

// SetUnpredictable clears the match & any prediction eligibility for a
// vehicle without touching its last report
func (m *VehicleStateManager) SetUnpredictable(vehicleID string) *VehicleState {
	state := m.GetState(vehicleID)

	state.mu.Lock()
	defer state.mu.Unlock()
	state.match = nil
	state.predictable = false

	return state
}

// States returns every vehicle state currently held
func (m *VehicleStateManager) States() []*VehicleState {
	var states []*VehicleState

	m.states.Range(func(key, value any) bool {
		states = append(states, value.(*VehicleState))
		return true
	})

	return states
}

// StatesForRoute returns the states of predictable vehicles currently
// matched to a trip on the given route
func (m *VehicleStateManager) StatesForRoute(routeID string) []*VehicleState {
	var states []*VehicleState

	m.states.Range(func(key, value any) bool {
		state := value.(*VehicleState)

		state.mu.Lock()
		onRoute := state.predictable && state.match != nil && state.match.Trip.RouteID == routeID
		state.mu.Unlock()

		if onRoute {
			states = append(states, state)
		}
		return true
	})

	return states
}

// StateForTrip locates the unique vehicle currently serving a trip.
// No-schedule trips run repeatedly through the day & are disambiguated by
// exact start time equality
func (m *VehicleStateManager) StateForTrip(tripRef string, startTime int64) *VehicleState {
	var found *VehicleState

	m.states.Range(func(key, value any) bool {
		state := value.(*VehicleState)

		state.mu.Lock()
		match := state.match
		state.mu.Unlock()

		if match == nil || match.Trip.PrimaryIdentifier != tripRef {
			return true
		}

		if match.Trip.NoSchedule && match.Trip.StartTime.Unix() != startTime {
			return true
		}

		found = state
		return false
	})

	return found
}

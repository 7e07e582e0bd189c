package datacache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/transitflow/transitflow/pkg/tdf"
)

func historyEvent(tripRef string, eventType tdf.ArrivalDepartureType, observed time.Time) *tdf.ArrivalDeparture {
	return &tdf.ArrivalDeparture{
		EventType:         eventType,
		StopRef:           "stop-1",
		TripRef:           tripRef,
		VehicleIdentifier: "bus-1",
		ScheduledTime:     observed,
		ObservedTime:      observed,
	}
}

func TestTripDataHistoryCache(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("Events come back ordered by time regardless of insertion order", func(t *testing.T) {
		cache := NewTripDataHistoryCache()

		key := cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base.Add(10*time.Minute)))
		cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base))
		cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base.Add(5*time.Minute)))

		history := cache.GetTripHistory(key)
		assert.Len(t, history, 3)
		assert.Equal(t, base, history[0].ObservedTime)
		assert.Equal(t, base.Add(5*time.Minute), history[1].ObservedTime)
		assert.Equal(t, base.Add(10*time.Minute), history[2].ObservedTime)
	})

	t.Run("Trip key carries the service date", func(t *testing.T) {
		cache := NewTripDataHistoryCache()

		key := cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base))
		assert.Equal(t, tdf.TripKey{TripRef: "trip-1", StartDate: "2026-03-02"}, key)
	})

	t.Run("Unknown trip yields nil", func(t *testing.T) {
		cache := NewTripDataHistoryCache()

		assert.Nil(t, cache.GetTripHistory(tdf.TripKey{TripRef: "nope", StartDate: "2026-03-02"}))
	})

	t.Run("Events outside the retention window are evicted oldest first", func(t *testing.T) {
		cache := NewTripDataHistoryCache()
		cache.RetentionWindow = time.Hour

		key := cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base))
		cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base.Add(30*time.Minute)))
		cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base.Add(90*time.Minute)))

		history := cache.GetTripHistory(key)
		assert.Len(t, history, 2)
		assert.Equal(t, base.Add(30*time.Minute), history[0].ObservedTime)
	})

	t.Run("Window is bounded by event count as well", func(t *testing.T) {
		cache := NewTripDataHistoryCache()
		cache.MaxEventsPerTrip = 10

		var key tdf.TripKey
		for i := 0; i < 25; i++ {
			key = cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base.Add(time.Duration(i)*time.Minute)))
		}

		history := cache.GetTripHistory(key)
		assert.Len(t, history, 10)
		assert.Equal(t, base.Add(15*time.Minute), history[0].ObservedTime)
		assert.Equal(t, base.Add(24*time.Minute), history[9].ObservedTime)
	})

	t.Run("Returned history is a copy", func(t *testing.T) {
		cache := NewTripDataHistoryCache()

		key := cache.PutArrivalDeparture(historyEvent("trip-1", tdf.EventTypeArrival, base))
		history := cache.GetTripHistory(key)
		history[0] = nil

		assert.NotNil(t, cache.GetTripHistory(key)[0])
	})

	t.Run("Distinct trips are kept apart", func(t *testing.T) {
		cache := NewTripDataHistoryCache()

		for i := 0; i < 5; i++ {
			cache.PutArrivalDeparture(historyEvent(fmt.Sprintf("trip-%d", i), tdf.EventTypeArrival, base))
		}

		assert.Len(t, cache.Keys(), 5)
	})
}

func TestFindEventHelpers(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	arrivalA := historyEvent("trip-1", tdf.EventTypeArrival, base)
	departureA := historyEvent("trip-1", tdf.EventTypeDeparture, base.Add(time.Minute))
	arrivalB := historyEvent("trip-1", tdf.EventTypeArrival, base.Add(5*time.Minute))
	departureB := historyEvent("trip-1", tdf.EventTypeDeparture, base.Add(6*time.Minute))

	reference := arrivalB

	t.Run("Previous arrival is the latest one strictly before", func(t *testing.T) {
		candidates := []*tdf.ArrivalDeparture{departureB, arrivalA, departureA, arrivalB}

		assert.Equal(t, arrivalA, FindPreviousArrivalEvent(candidates, reference))
	})

	t.Run("Previous departure skips arrivals", func(t *testing.T) {
		candidates := []*tdf.ArrivalDeparture{arrivalA, departureA, arrivalB, departureB}

		assert.Equal(t, departureA, FindPreviousDepartureEvent(candidates, reference))
	})

	t.Run("Upcoming departure is the earliest one strictly after", func(t *testing.T) {
		candidates := []*tdf.ArrivalDeparture{departureB, departureA, arrivalA}

		assert.Equal(t, departureB, FindUpcomingDepartureEvent(candidates, reference))
	})

	t.Run("Nothing found yields nil", func(t *testing.T) {
		assert.Nil(t, FindPreviousArrivalEvent([]*tdf.ArrivalDeparture{arrivalB}, reference))
		assert.Nil(t, FindUpcomingDepartureEvent([]*tdf.ArrivalDeparture{departureA}, reference))
	})

	t.Run("Result does not depend on candidate order", func(t *testing.T) {
		forwards := []*tdf.ArrivalDeparture{arrivalA, departureA, arrivalB, departureB}
		backwards := []*tdf.ArrivalDeparture{departureB, arrivalB, departureA, arrivalA}

		assert.Equal(t, FindPreviousDepartureEvent(forwards, reference), FindPreviousDepartureEvent(backwards, reference))
		assert.Equal(t, FindUpcomingDepartureEvent(forwards, reference), FindUpcomingDepartureEvent(backwards, reference))
	})
}

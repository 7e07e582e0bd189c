package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitflow/transitflow/pkg/tdf"
	"github.com/transitflow/transitflow/pkg/tracker"
	"github.com/transitflow/transitflow/pkg/tracker/commands"
)

func testApp(t *testing.T) (*fiber.App, *tracker.Engine) {
	t.Helper()

	config := tracker.Config{
		Matcher: tracker.MatcherConfig{
			MaxMatchDistanceMetres:  250.0,
			TemporalDeviationWeight: 0.1,
			SegmentOffsetTolerance:  0.05,
			MaxForwardSegments:      3,
		},
		Dispatcher: tracker.DispatcherConfig{Workers: 1, QueueSize: 8},
	}
	engine := tracker.NewEngine(config, tracker.NewStaticTripModel(nil))

	app := fiber.New()
	group := app.Group("/core")
	VehiclesRouter(group.Group("/vehicles"), engine)
	RoutesRouter(group.Group("/routes"), engine)
	CommandsRouter(group.Group("/commands"), commands.NewCommands(engine))

	return app, engine
}

func seedVehicle(engine *tracker.Engine, id string, routeID string, predictable bool) {
	engine.VehicleCache.UpdateVehicle(&tdf.Vehicle{
		PrimaryIdentifier: id,
		Location:          tdf.Location{Type: "Point", Coordinates: []float64{-1.47, 52.92}},
		RecordedAt:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		TripRef:           "trip-1",
		RouteID:           routeID,
		RouteShortName:    "10",
		BlockRef:          "block-1",
		Predictable:       predictable,
		SegmentIndex:      1,
	})
}

func getJSON(t *testing.T, app *fiber.App, url string) (int, map[string]any) {
	t.Helper()

	response, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(body) > 0 && body[0] == '{' {
		require.NoError(t, json.Unmarshal(body, &decoded))
	}

	return response.StatusCode, decoded
}

func getJSONList(t *testing.T, app *fiber.App, url string) (int, []any) {
	t.Helper()

	response, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var decoded []any
	if string(body) != "null" {
		require.NoError(t, json.Unmarshal(body, &decoded))
	}

	return response.StatusCode, decoded
}

func TestGetVehicle(t *testing.T) {
	app, engine := testApp(t)
	seedVehicle(engine, "bus-1", "route-10", true)

	t.Run("Basic form omits the detailed fields", func(t *testing.T) {
		status, vehicle := getJSON(t, app, "/core/vehicles/bus-1")
		require.Equal(t, http.StatusOK, status)

		assert.Equal(t, "bus-1", vehicle["PrimaryIdentifier"])
		assert.Equal(t, "trip-1", vehicle["TripRef"])
		assert.NotContains(t, vehicle, "BlockRef")
		assert.NotContains(t, vehicle, "SegmentIndex")
	})

	t.Run("Detailed form includes them", func(t *testing.T) {
		status, vehicle := getJSON(t, app, "/core/vehicles/bus-1?detailed=true")
		require.Equal(t, http.StatusOK, status)

		assert.Equal(t, "block-1", vehicle["BlockRef"])
		assert.Equal(t, float64(1), vehicle["SegmentIndex"])
	})

	t.Run("Unknown vehicle is a 404", func(t *testing.T) {
		status, body := getJSON(t, app, "/core/vehicles/bus-9")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Contains(t, body, "error")
	})
}

func TestListVehicles(t *testing.T) {
	app, engine := testApp(t)
	seedVehicle(engine, "bus-1", "route-10", true)
	seedVehicle(engine, "bus-2", "route-20", true)
	seedVehicle(engine, "bus-3", "route-10", false)

	t.Run("All vehicles", func(t *testing.T) {
		status, vehicles := getJSONList(t, app, "/core/vehicles/")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, vehicles, 3)
	})

	t.Run("Filtered by identifier list", func(t *testing.T) {
		status, vehicles := getJSONList(t, app, "/core/vehicles/?ids=bus-1,bus-9,bus-2")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, vehicles, 2)
	})
}

func TestGetVehiclesForRoutes(t *testing.T) {
	app, engine := testApp(t)
	seedVehicle(engine, "bus-1", "route-10", true)
	seedVehicle(engine, "bus-2", "route-20", true)
	seedVehicle(engine, "bus-3", "route-10", false)

	t.Run("By route identifier", func(t *testing.T) {
		status, vehicles := getJSONList(t, app, "/core/routes/vehicles?route_ids=route-10")
		require.Equal(t, http.StatusOK, status)

		// The unpredictable vehicle on the route is absent
		assert.Len(t, vehicles, 1)
	})

	t.Run("By route short name", func(t *testing.T) {
		status, vehicles := getJSONList(t, app, "/core/routes/vehicles?routes=10")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, vehicles, 1)
	})

	t.Run("Missing filter is a 400", func(t *testing.T) {
		status, body := getJSON(t, app, "/core/routes/vehicles")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "error")
	})
}

func TestCommandEndpoints(t *testing.T) {
	t.Run("Unpredictable command succeeds with a null error", func(t *testing.T) {
		app, engine := testApp(t)
		seedVehicle(engine, "bus-1", "route-10", true)

		response, err := app.Test(httptest.NewRequest(http.MethodPost, "/core/commands/vehicles/bus-1/unpredictable", nil))
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusOK, response.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
		assert.Nil(t, body["error"])
	})

	t.Run("AVL push of a JSON null body surfaces the error string", func(t *testing.T) {
		app, _ := testApp(t)

		request := httptest.NewRequest(http.MethodPost, "/core/commands/avl", strings.NewReader("null"))
		request.Header.Set("Content-Type", "application/json")
		response, err := app.Test(request)
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
		assert.Contains(t, body["error"], "empty")
	})

	t.Run("Cancel of an unknown trip surfaces the error string", func(t *testing.T) {
		app, _ := testApp(t)

		request := httptest.NewRequest(http.MethodPost, "/core/commands/trips/trip-9/cancel?start_time=2026-03-02T09:00:00Z", nil)
		response, err := app.Test(request)
		require.NoError(t, err)
		defer response.Body.Close()

		require.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
		assert.Contains(t, body["error"], "not currently available")
	})

	t.Run("Cancel without a start time is a 400", func(t *testing.T) {
		app, _ := testApp(t)

		response, err := app.Test(httptest.NewRequest(http.MethodPost, "/core/commands/trips/trip-1/cancel", nil))
		require.NoError(t, err)
		defer response.Body.Close()

		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})
}

package routes

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/transitflow/transitflow/pkg/tracker"
)

func VehiclesRouter(router fiber.Router, engine *tracker.Engine) {
	router.Get("/", func(c *fiber.Ctx) error { return listVehicles(c, engine) })
	router.Get("/:identifier", func(c *fiber.Ctx) error { return getVehicle(c, engine) })
	router.Get("/:identifier/predictions", func(c *fiber.Ctx) error { return getVehiclePredictions(c, engine) })
}

func marshalGroups(c *fiber.Ctx, value any) error {
	groups := []string{"basic"}
	if c.Query("detailed") == "true" {
		groups = append(groups, "detailed")
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, value)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not reduce response",
		})
	}

	return c.JSON(reduced)
}

func listVehicles(c *fiber.Ctx, engine *tracker.Engine) error {
	if ids := c.Query("ids"); ids != "" {
		return marshalGroups(c, engine.VehicleCache.GetVehiclesByIDs(strings.Split(ids, ",")))
	}

	return marshalGroups(c, engine.VehicleCache.GetVehicles())
}

func getVehicle(c *fiber.Ctx, engine *tracker.Engine) error {
	identifier := c.Params("identifier")

	vehicle := engine.VehicleCache.GetVehicle(identifier)
	if vehicle == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Vehicle matching Identifier",
		})
	}

	return marshalGroups(c, vehicle)
}

func getVehiclePredictions(c *fiber.Ctx, engine *tracker.Engine) error {
	identifier := c.Params("identifier")

	predictions := engine.PredictionCache.GetPredictionsForVehicle(identifier)

	return marshalGroups(c, predictions)
}

func RoutesRouter(router fiber.Router, engine *tracker.Engine) {
	router.Get("/vehicles", func(c *fiber.Ctx) error { return getVehiclesForRoutes(c, engine) })
}

// getVehiclesForRoutes looks vehicles up by route short name or by route
// identifier - both accept comma separated lists
func getVehiclesForRoutes(c *fiber.Ctx, engine *tracker.Engine) error {
	if routeIDs := c.Query("route_ids"); routeIDs != "" {
		return marshalGroups(c, engine.VehicleCache.GetVehiclesForRouteID(strings.Split(routeIDs, ",")))
	}

	if routes := c.Query("routes"); routes != "" {
		return marshalGroups(c, engine.VehicleCache.GetVehiclesForRoute(strings.Split(routes, ",")))
	}

	c.SendStatus(fiber.StatusBadRequest)
	return c.JSON(fiber.Map{
		"error": "Provide either routes or route_ids",
	})
}

package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/transitflow/transitflow/pkg/tdf"
	"github.com/transitflow/transitflow/pkg/tracker/commands"
)

func CommandsRouter(router fiber.Router, engineCommands *commands.Commands) {
	router.Post("/avl", func(c *fiber.Ctx) error { return pushAvl(c, engineCommands) })
	router.Post("/avl/batch", func(c *fiber.Ctx) error { return pushAvlBatch(c, engineCommands) })

	router.Post("/vehicles/:identifier/unpredictable", func(c *fiber.Ctx) error {
		return commandResult(c, engineCommands.SetVehicleUnpredictable(c.Params("identifier")))
	})

	router.Post("/trips/:identifier/cancel", func(c *fiber.Ctx) error { return setTripCanceled(c, engineCommands, true) })
	router.Post("/trips/:identifier/reenable", func(c *fiber.Ctx) error { return setTripCanceled(c, engineCommands, false) })

	router.Post("/blocks/assignments", func(c *fiber.Ctx) error { return addVehicleToBlock(c, engineCommands) })
	router.Delete("/blocks/assignments/:identifier", func(c *fiber.Ctx) error {
		return commandResult(c, engineCommands.RemoveVehicleToBlock(c.Params("identifier")))
	})
}

// commandResult renders the command boundary contract - an empty error field
// on success, a descriptive string otherwise
func commandResult(c *fiber.Ctx, err error) error {
	if err != nil {
		c.SendStatus(fiber.StatusUnprocessableEntity)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"error": nil,
	})
}

func pushAvl(c *fiber.Ctx, engineCommands *commands.Commands) error {
	var report *tdf.AvlReport
	if err := c.BodyParser(&report); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return commandResult(c, engineCommands.PushAvl(report))
}

func pushAvlBatch(c *fiber.Ctx, engineCommands *commands.Commands) error {
	var reports []*tdf.AvlReport
	if err := c.BodyParser(&reports); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return commandResult(c, engineCommands.PushAvlBatch(reports))
}

func addVehicleToBlock(c *fiber.Ctx, engineCommands *commands.Commands) error {
	var assignment commands.VehicleBlockAssignment
	if err := c.BodyParser(&assignment); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return commandResult(c, engineCommands.AddVehicleToBlock(assignment))
}

func setTripCanceled(c *fiber.Ctx, engineCommands *commands.Commands, canceled bool) error {
	startTime, err := time.Parse(time.RFC3339, c.Query("start_time"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "start_time must be RFC3339",
		})
	}

	if canceled {
		return commandResult(c, engineCommands.CancelTrip(c.Params("identifier"), startTime))
	}

	return commandResult(c, engineCommands.ReenableTrip(c.Params("identifier"), startTime))
}

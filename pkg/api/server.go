package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/transitflow/transitflow/pkg/api/routes"
	"github.com/transitflow/transitflow/pkg/tracker"
	"github.com/transitflow/transitflow/pkg/tracker/commands"
)

func SetupServer(listen string, engine *tracker.Engine) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	engineCommands := commands.NewCommands(engine)

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.VehiclesRouter(group.Group("/vehicles"), engine)
	routes.RoutesRouter(group.Group("/routes"), engine)
	routes.CommandsRouter(group.Group("/commands"), engineCommands)

	return webApp.Listen(listen)
}

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/elastic_client"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/transitflow/transitflow/pkg/tracker"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Runs the realtime engine together with its query & command API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the engine and web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.DurationFlag{
						Name:  "history-warmload",
						Value: 24 * time.Hour,
						Usage: "how far back to warm load the trip history cache",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					config, err := tracker.GetConfig()
					if err != nil {
						return err
					}

					model, err := tracker.LoadTripModel(context.Background())
					if err != nil {
						return err
					}

					engine := tracker.NewEngine(config, model)
					engine.Start()

					warmLoad := c.Duration("history-warmload")
					if err := engine.TripHistory.PopulateCacheFromDb(context.Background(), time.Now().Add(-warmLoad), time.Now()); err != nil {
						log.Error().Err(err).Msg("Failed to warm load trip history cache")
					}

					if err := tracker.StartConsumers(engine.Dispatcher); err != nil {
						return err
					}

					return SetupServer(c.String("listen"), engine)
				},
			},
		},
	}
}

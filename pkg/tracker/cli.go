package tracker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/elastic_client"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/transitflow/transitflow/pkg/tdf"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Realtime engine ingests AVL reports and tracks vehicles against their trips",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run a headless instance of the realtime engine",
				Flags: []cli.Flag{
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

					config, err := GetConfig()
					if err != nil {
						return err
					}

					model, err := LoadTripModel(context.Background())
					if err != nil {
						return err
					}

					engine := NewEngine(config, model)
					engine.Start()

					warmLoad := c.Duration("history-warmload")
					if err := engine.TripHistory.PopulateCacheFromDb(context.Background(), time.Now().Add(-warmLoad), time.Now()); err != nil {
						log.Error().Err(err).Msg("Failed to warm load trip history cache")
					}

					if err := StartConsumers(engine.Dispatcher); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					engine.Stop()
					elastic_client.WaitUntilQueueEmpty()

					return nil
				},
			},
			{
				Name:  "testmatch",
				Usage: "run a single sample report through the matcher",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					config, err := GetConfig()
					if err != nil {
						return err
					}

					model, err := LoadTripModel(context.Background())
					if err != nil {
						return err
					}

					matcher := NewTemporalMatcher(config.Matcher, &CanceledTrips{})

					report := &tdf.AvlReport{
						VehicleIdentifier: c.Args().Get(0),
						Location: tdf.Location{
							Type:        "Point",
							Coordinates: []float64{-0.141944, 51.514797},
						},
						RecordedAt: time.Now(),
					}

					result := matcher.Match(nil, report, model)
					pretty.Println(result)

					return nil
				},
			},
		},
	}
}

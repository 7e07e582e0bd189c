package dataimporter

import (
	"errors"

	"github.com/transitflow/transitflow/pkg/database"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "data-importer",
		Usage: "Imports external data into the realtime engine",
		Subcommands: []*cli.Command{
			{
				Name:      "gtfs-rt",
				Usage:     "fetch a GTFS-RT VehiclePositions feed and enqueue its reports",
				ArgsUsage: "<feed url>",
				Action: func(c *cli.Context) error {
					url := c.Args().Get(0)
					if url == "" {
						return errors.New("feed url is required")
					}

					if err := redis_client.Connect(); err != nil {
						return err
					}

					return ImportGTFSRT(url)
				},
			},
			{
				Name:      "arrival-departures",
				Usage:     "backfill historical arrival/departure records from a CSV export",
				ArgsUsage: "<csv path>",
				Action: func(c *cli.Context) error {
					path := c.Args().Get(0)
					if path == "" {
						return errors.New("csv path is required")
					}

					if err := database.Connect(); err != nil {
						return err
					}

					return ImportArrivalDepartures(path)
				},
			},
		},
	}
}

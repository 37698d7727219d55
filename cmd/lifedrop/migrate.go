package main

import (
	"fmt"

	"lifedrop/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply or inspect database migrations",
	Subcommands: []*cli.Command{
		migrateSubcommand(db.MigrateUp, "Apply all pending migrations"),
		migrateSubcommand(db.MigrateDown, "Roll back the most recent migration"),
		migrateSubcommand(db.MigrateStatus, "Print the status of every migration"),
	},
}

func migrateSubcommand(direction db.MigrateDirection, usage string) *cli.Command {
	return &cli.Command{
		Name:  string(direction),
		Usage: usage,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String("env-prefix"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := db.Migrate(c.Context, cfg.DatabaseURL, direction); err != nil {
				return err
			}

			logrus.WithField("direction", direction).Info("migrations finished")
			return nil
		},
	}
}

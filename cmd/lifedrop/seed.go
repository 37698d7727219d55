package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"lifedrop/internal/db"
	"lifedrop/internal/seed"
	"lifedrop/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo donors and donation history",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "password",
			Usage: "Password given to every demo account",
			Value: "lifedrop-demo",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Print the seeded users",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("env-prefix"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		userRepo := store.NewUserRepository(pool)
		donationRepo := store.NewDonationRepository(pool)

		users, err := seed.SeedUsers(ctx, userRepo, c.String("password"), cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
		logrus.WithField("count", len(users)).Info("Demo users seeded")

		now := uint64(time.Now().UnixNano())
		created, err := seed.SeedDonations(ctx, donationRepo, userRepo, users, rand.New(rand.NewPCG(now, now>>1)))
		if err != nil {
			return fmt.Errorf("failed to seed donations: %w", err)
		}
		logrus.WithField("count", created).Info("Demo donations seeded")

		if c.Bool("verbose") {
			pp.Println(users)
		}

		return nil
	},
}

package main

import (
	"fmt"

	"lifedrop/internal/utils"

	"github.com/urfave/cli/v2"
)

var nanoidCommand = &cli.Command{
	Name:  "nanoid",
	Usage: "Print record IDs in the format the API generates",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
	},
	Action: func(c *cli.Context) error {
		count := c.Int("count")
		if count < 1 {
			return fmt.Errorf("count must be at least 1")
		}
		for range count {
			fmt.Println(utils.NanoID())
		}
		return nil
	},
}

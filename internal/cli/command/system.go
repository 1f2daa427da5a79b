package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fleetkit/tokenreg/internal/cli/connection"
)

// SystemCommand returns the "system" subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "System commands",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemHealth,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	client := Client(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		PrintError("health check failed: %v", err)
		return cli.Exit("server unreachable", 1)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return cli.Exit(err, 1)
	}

	if result.Status == "healthy" || result.Status == "ok" {
		fmt.Printf("server is healthy (%s)\n", client.BaseURL())
		return nil
	}
	return cli.Exit(fmt.Sprintf("server is unhealthy: %s", result.Status), 1)
}

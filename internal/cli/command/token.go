package command

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fleetkit/tokenreg/internal/cli/connection"
	"github.com/fleetkit/tokenreg/internal/cli/output"
)

// TokenCommand returns the "token" subcommand group, operating on a single
// named token (GET/POST/DELETE /token, §6).
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Manage a single token",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Fetch a token",
				ArgsUsage: "TOKEN",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "metadata", Usage: "include system metadata fields"},
					&cli.BoolFlag{Name: "deleted", Usage: "include soft-deleted tokens"},
				},
				Action: tokenGet,
			},
			{
				Name:      "set",
				Usage:     "Create or update a token",
				ArgsUsage: "TOKEN",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cmd", Usage: "command to run"},
					&cli.IntFlag{Name: "cpus", Usage: "CPU share"},
					&cli.IntFlag{Name: "mem", Usage: "memory, in MB"},
					&cli.StringSliceFlag{Name: "port", Usage: "exposed port (repeatable)"},
					&cli.StringFlag{Name: "health-check", Usage: "health-check path"},
					&cli.StringFlag{Name: "authentication", Usage: "authentication mode"},
					&cli.StringFlag{Name: "permitted-user", Usage: "user permitted to access the token"},
					&cli.IntFlag{Name: "interstitial-secs", Usage: "interstitial page duration, in seconds"},
					&cli.StringFlag{Name: "run-as-user", Usage: "user the service runs as"},
					&cli.StringSliceFlag{Name: "param", Usage: "additional field as key=value (repeatable)"},
					&cli.StringFlag{Name: "if-match", Usage: "only update if the token's current ETag matches"},
					&cli.BoolFlag{Name: "admin-mode", Usage: "bypass owner-match authorization (admin role only)"},
				},
				Action: tokenSet,
			},
			{
				Name:      "delete",
				Usage:     "Delete a token",
				ArgsUsage: "TOKEN",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "if-match", Usage: "only delete if the token's current ETag matches"},
					&cli.BoolFlag{Name: "hard", Usage: "hard-delete instead of soft-delete"},
				},
				Action: tokenDelete,
			},
		},
	}
}

func tokenGet(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("token name is required", 1)
	}

	query := url.Values{"token": []string{name}}
	if c.Bool("metadata") {
		query.Add("include", "metadata")
	}
	if c.Bool("deleted") {
		query.Add("include", "deleted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := Client(c).Get(ctx, "/token?"+query.Encode())
	if err != nil {
		return cli.Exit(err, 1)
	}

	var body map[string]any
	if err := connection.ParseResponse(resp, &body); err != nil {
		return cli.Exit(err, 1)
	}

	flags := ParseGlobalFlags(c)
	return output.NewFormatter(output.Format(flags.Output), flags.Wide).Format(os.Stdout, body)
}

func tokenSet(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("token name is required", 1)
	}

	body := map[string]any{}
	setIfPresent(c, body, "cmd", "cmd")
	setIntIfPresent(c, body, "cpus", "cpus")
	setIntIfPresent(c, body, "mem", "mem")
	if ports := c.StringSlice("port"); len(ports) > 0 {
		body["ports"] = ports
	}
	setIfPresent(c, body, "health-check", "health-check")
	setIfPresent(c, body, "authentication", "authentication")
	setIfPresent(c, body, "permitted-user", "permitted-user")
	setIntIfPresent(c, body, "interstitial-secs", "interstitial-secs")
	setIfPresent(c, body, "run-as-user", "run-as-user")
	for _, kv := range c.StringSlice("param") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return cli.Exit("--param must be key=value, got "+kv, 1)
		}
		body[k] = v
	}

	query := url.Values{"token": []string{name}}
	if c.Bool("admin-mode") {
		query.Set("update-mode", "admin")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := Client(c).PostIfMatch(ctx, "/token?"+query.Encode(), body, c.String("if-match"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	var result map[string]any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return cli.Exit(err, 1)
	}

	flags := ParseGlobalFlags(c)
	return output.NewFormatter(output.Format(flags.Output), flags.Wide).Format(os.Stdout, result)
}

func tokenDelete(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("token name is required", 1)
	}

	query := url.Values{"token": []string{name}}
	if c.Bool("hard") {
		query.Set("hard-delete", "true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := Client(c).Delete(ctx, "/token?"+query.Encode(), c.String("if-match"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	var result map[string]any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return cli.Exit(err, 1)
	}

	flags := ParseGlobalFlags(c)
	return output.NewFormatter(output.Format(flags.Output), flags.Wide).Format(os.Stdout, result)
}

func setIfPresent(c *cli.Context, body map[string]any, flag, key string) {
	if c.IsSet(flag) {
		body[key] = c.String(flag)
	}
}

func setIntIfPresent(c *cli.Context, body map[string]any, flag, key string) {
	if c.IsSet(flag) {
		body[key] = c.Int(flag)
	}
}

package command

import (
	"context"
	"net/url"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fleetkit/tokenreg/internal/cli/connection"
	"github.com/fleetkit/tokenreg/internal/cli/output"
)

// TokensCommand returns the "tokens" subcommand group, operating on the
// registry as a whole (GET /tokens, GET /token-owners, POST
// /tokens/reindex, §4.7, §4.9, §6).
func TokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "Operate on the token registry",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tokens",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "owner", Usage: "filter by owner (repeatable)"},
					&cli.BoolFlag{Name: "metadata", Usage: "include system metadata fields"},
					&cli.BoolFlag{Name: "deleted", Usage: "include soft-deleted tokens"},
					&cli.StringFlag{Name: "can-manage-as-user", Usage: "only tokens this user may manage"},
				},
				Action: tokensList,
			},
			{
				Name:   "owners",
				Usage:  "Show the owner directory",
				Action: tokensOwners,
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the owner directory and shards from scratch",
				Action: tokensReindex,
			},
		},
	}
}

func tokensList(c *cli.Context) error {
	query := url.Values{}
	for _, owner := range c.StringSlice("owner") {
		query.Add("owner", owner)
	}
	if c.Bool("metadata") {
		query.Add("include", "metadata")
	}
	if c.Bool("deleted") {
		query.Add("include", "deleted")
	}
	if v := c.String("can-manage-as-user"); v != "" {
		query.Set("can-manage-as-user", v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := Client(c).Get(ctx, "/tokens?"+query.Encode())
	if err != nil {
		return cli.Exit(err, 1)
	}

	var entries []map[string]any
	if err := connection.ParseResponse(resp, &entries); err != nil {
		return cli.Exit(err, 1)
	}

	flags := ParseGlobalFlags(c)
	return output.NewFormatter(output.Format(flags.Output), flags.Wide).Format(os.Stdout, entries)
}

func tokensOwners(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := Client(c).Get(ctx, "/token-owners")
	if err != nil {
		return cli.Exit(err, 1)
	}

	var directory map[string]string
	if err := connection.ParseResponse(resp, &directory); err != nil {
		return cli.Exit(err, 1)
	}

	flags := ParseGlobalFlags(c)
	return output.NewFormatter(output.Format(flags.Output), flags.Wide).Format(os.Stdout, directory)
}

func tokensReindex(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	resp, err := Client(c).Post(ctx, "/tokens/reindex", nil)
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

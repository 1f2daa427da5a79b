package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fleetkit/tokenreg/internal/cli/connection"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the tokenreg-cli application.
func App() *cli.App {
	return &cli.App{
		Name:    "tokenreg-cli",
		Usage:   "token registry command-line management tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenCommand(),
			TokensCommand(),
			SystemCommand(),
		},
	}
}

// globalFlags returns the flags available to every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (e.g., localhost:5080)",
			EnvVars: []string{"TOKENREG_SERVER"},
			Value:   "localhost:5080",
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "identity to present via the trusted-user header",
			EnvVars: []string{"TOKENREG_USER"},
		},
		&cli.StringFlag{
			Name:    "user-header",
			Usage:   "header name the server trusts for caller identity",
			EnvVars: []string{"TOKENREG_USER_HEADER"},
			Value:   "X-Authenticated-User",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more columns)",
		},
	}
}

// GlobalFlags holds the flags every command reads.
type GlobalFlags struct {
	Server     string
	User       string
	UserHeader string
	Output     string
	Wide       bool
}

// ParseGlobalFlags extracts global flags from c.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:     c.String("server"),
		User:       c.String("user"),
		UserHeader: c.String("user-header"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
	}
}

// Client builds an HTTP client from c's global flags.
func Client(c *cli.Context) *connection.HTTPClient {
	flags := ParseGlobalFlags(c)
	return connection.NewHTTPClient(flags.Server, flags.UserHeader, flags.User)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

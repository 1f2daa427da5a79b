// Package main provides the entry point for tokenreg-cli.
//
// tokenreg-cli is the command-line management tool for a token registry
// server: fetching, creating, updating, deleting, and listing tokens, and
// triggering an operator re-index.
package main

import (
	"fmt"
	"os"

	"github.com/fleetkit/tokenreg/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

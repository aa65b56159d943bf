// Package main is the parishpanel command.
package main

import (
	"os"

	"github.com/leapstack-labs/parishpanel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

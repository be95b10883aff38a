// Package main provides the flagcore CLI for inspecting and evaluating
// feature-flag snapshot files.
package main

import (
	"os"

	"github.com/TimurManjosov/flagcore/cmd/flagcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

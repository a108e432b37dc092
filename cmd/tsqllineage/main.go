// Package main is the tsqllineage CLI entry point.
package main

import (
	"os"

	"github.com/Glaschu/tsqllineage/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

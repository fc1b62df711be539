// Package main is the entry point for the tablelink CLI.
package main

import (
	"os"

	"github.com/tablelink-labs/tablelink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

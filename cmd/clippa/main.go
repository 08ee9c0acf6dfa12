// Package main is the entry point for the clippa application.
package main

import (
	"os"

	"github.com/clippa-dev/clippa/cmd/clippa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

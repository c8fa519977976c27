// Package main provides the entry point for the cortex CLI.
package main

import (
	"os"

	"github.com/cortexlabs/cortex/cmd/cortex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

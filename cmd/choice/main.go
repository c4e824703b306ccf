// Package main provides the CLI for choice registry tooling.
package main

import (
	"fmt"
	"os"

	"github.com/example/choice/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

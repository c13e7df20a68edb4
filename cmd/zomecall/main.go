// Package main is the entrypoint for zomecall.
package main

import (
	"fmt"
	"os"

	"github.com/morezero/zomecall/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "zomecall: %v\n", err)
		os.Exit(1)
	}
}

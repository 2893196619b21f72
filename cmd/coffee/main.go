package main

import (
	"os"

	"github.com/Spok95/coffee-club/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/cigdemahmet27/rtsched/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

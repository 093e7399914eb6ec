package main

import (
	"os"

	"flashtrade-sim/cmd/flashtrade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

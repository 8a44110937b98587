package main

import (
	"os"

	"github.com/marketdash/etl/cmd/etl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/paw-chain/aggregator/cmd/aggregatord/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/rustyeddy/coinsim/cmd/coinsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

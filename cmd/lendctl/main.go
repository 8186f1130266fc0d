package main

import (
	"os"

	"libralend/cmd/lendctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

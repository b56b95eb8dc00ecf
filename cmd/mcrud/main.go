package main

import (
	"os"

	"github.com/mcrud/mcrud/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/pscheid92/startupai/cmd/gatectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

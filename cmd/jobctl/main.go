package main

import (
	"os"

	"github.com/iddaa-lens/jobrunner/cmd/jobctl/commands"
)

func main() {
	if err := commands.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"confidant/cmd/confidant/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

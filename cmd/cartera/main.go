package main

import (
	"os"

	"github.com/gestioncarteras/backend/cmd/cartera/commands"
)

// main is the entry point for the cartera CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

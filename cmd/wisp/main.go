// The entrypoint for the wisp CLI.
package main

import (
	"log"

	"wisp/cmd/wisp/commands"
)

// Initialises and executes the command hierarchy.
func main() {
	if err := commands.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

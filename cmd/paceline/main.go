// cmd/paceline is the command-line entry point for the training-log
// knowledge base: ingest Garmin Connect CSV exports into the vector store,
// ask questions against them, and reset the stored collection.
package main

import (
	"fmt"
	"log"
	"os"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func main() {
	// All diagnostics go to stderr; stdout carries command output only.
	log.SetOutput(os.Stderr)
	log.SetPrefix("paceline: ")
	log.SetFlags(0)

	app := newCLIApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "paceline: %v\n", err)
		os.Exit(1)
	}
}

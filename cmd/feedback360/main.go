// Package main provides the entry point for the 360° feedback engine HTTP
// API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "feedback360",
	Short: "360° Feedback Engine HTTP API Server",
	Long:  "feedback360 collects multi-source evaluations, aggregates competency scores, and drives AI skills assessments and career path generation via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides the entry point for the tablemap CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/raphaelgruber/tablemap-go/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sensiblebit/certfields"
)

var version = "dev"

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err to w. Extraction failures print their fixed
// label with the underlying diagnostic on a help line.
func printError(w io.Writer, err error) {
	var e *certfields.Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", e.Label())
	if help := e.Help(); help != "" {
		fmt.Fprintf(w, "  help: %s\n", help)
	}
}

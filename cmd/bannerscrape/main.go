// Package main is the entry point for the bannerscrape CLI.
package main

import (
	"os"

	"github.com/hannahporter1905-jpg/promotional-banner-scraper/cmd/bannerscrape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

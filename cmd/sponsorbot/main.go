package main

import (
	"fmt"
	"os"

	"github.com/europython/sponsorbot/internal/cli"
	"github.com/europython/sponsorbot/internal/config"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

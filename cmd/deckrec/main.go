package main

import (
	"os"

	"github.com/deckrec/deckrec/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

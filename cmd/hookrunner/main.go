package main

import (
	"os"

	"github.com/gyaneshwarpardhi/hookrunner/cmd/hookrunner/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

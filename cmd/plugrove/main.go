package main

import (
	"os"

	"github.com/plugrove/plugrove/cmd/plugrove/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

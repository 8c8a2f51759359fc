package main

import (
	"os"

	"github.com/fairdata/fairsearch/cmd/fairsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

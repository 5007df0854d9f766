package main

import (
	"os"

	"github.com/seo-insights/backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

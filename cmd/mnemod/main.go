package main

import (
	"os"

	"github.com/mnemo-ai/mnemod/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

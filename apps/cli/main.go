package main

import (
	"os"

	"github.com/caseflow/caseflow/apps/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/wonny/compounder/cmd/compounder/commands"
)

// main is the entry point for the compounder CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/compounder [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

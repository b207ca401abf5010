package main

import (
	"os"

	"github.com/rustyeddy/vault/cmd/vault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

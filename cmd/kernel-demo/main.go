package main

import (
	"os"

	"github.com/omnipulse/go-shared-kernel/cmd/kernel-demo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/nedrysoft/pathping/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"inspectra.app/offline-gateway/cmd/offlinectl/commands"
)

func main() {
	if err := commands.NewRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

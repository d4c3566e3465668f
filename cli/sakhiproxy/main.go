package main

import (
	"fmt"
	"os"

	servecmder "github.com/legalsakhi/sakhi/cmd/sakhi/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()

	cmd.Use = "sakhiproxy"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .sakhi/ config directory")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing root command: %v\n", err)
		os.Exit(1)
	}
}

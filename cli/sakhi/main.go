package main

import (
	"fmt"
	"os"

	sakhicmder "github.com/legalsakhi/sakhi/cmd/sakhi"
	"github.com/legalsakhi/sakhi/pkg/cliui"
)

func main() {
	cmd := sakhicmder.NewSakhiCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", cliui.FailMark, err)
		os.Exit(1)
	}
}

// Package versioncmder
package versioncmder

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/legalsakhi/sakhi/pkg/utils"
)

// Info is the build information printed by the version command.
type Info struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"buildtime"`
	GoVersion string `json:"go_version"`
}

func NewVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of the sakhi CLI and proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the build information as JSON")

	return cmd
}

func current() Info {
	return Info{
		Version:   utils.Version,
		Sha:       utils.Sha,
		Buildtime: utils.Buildtime,
		GoVersion: runtime.Version(),
	}
}

func run(out io.Writer, asJSON bool) error {
	info := current()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	_, err := fmt.Fprintf(out, "Version: %s\nSha: %s\nBuilt at: %s\nGo: %s\n",
		info.Version, info.Sha, info.Buildtime, info.GoVersion)
	return err
}

// Package sakhicmder
package sakhicmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/legalsakhi/sakhi/cmd/sakhi/auth"
	casefilecmder "github.com/legalsakhi/sakhi/cmd/sakhi/casefile"
	chatcmder "github.com/legalsakhi/sakhi/cmd/sakhi/chat"
	configcmder "github.com/legalsakhi/sakhi/cmd/sakhi/config"
	initcmder "github.com/legalsakhi/sakhi/cmd/sakhi/init"
	servecmder "github.com/legalsakhi/sakhi/cmd/sakhi/serve"
	versioncmder "github.com/legalsakhi/sakhi/cmd/version"
)

const sakhiLongDesc string = `Legal Sakhi helps you understand your legal rights.

Chat about a problem, or turn what happened into a structured case file you
can take to a lawyer, a legal aid clinic or the police. Sakhi gives general
legal information, not legal advice.

Get started:
  sakhi auth gateway     Store the LLM gateway key
  sakhi serve            Run the proxy
  sakhi chat             Chat about your rights
  sakhi casefile         Generate a case file`

const sakhiShortDesc string = "Legal Sakhi - legal awareness chat and case files"

func NewSakhiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sakhi",
		Short:         sakhiShortDesc,
		Long:          sakhiLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .sakhi/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(casefilecmder.NewCaseFileCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

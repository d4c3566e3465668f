// Package authcmder provides the auth command for storing the gateway and
// proxy keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/legalsakhi/sakhi/pkg/cliui"
	"github.com/legalsakhi/sakhi/pkg/credentials"
)

const authLongDesc string = `Store API keys used by sakhi.

Keys are stored in credentials.toml in the .sakhi/ directory, readable only
by you. An environment variable always wins over a stored key.

Targets:
  gateway   key for the LLM gateway, used by "sakhi serve" (SAKHI_GATEWAY_API_KEY)
  proxy     bearer token sent to the proxy by "sakhi chat" and "sakhi casefile" (SAKHI_PROXY_API_KEY)

Examples:
  sakhi auth gateway              Prompt for the gateway key
  sakhi auth --list               List stored keys
  sakhi auth --remove gateway     Remove the stored gateway key
  echo $KEY | sakhi auth gateway  Pipe the key from stdin`

const authShortDesc string = "Store API keys"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [target]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("target argument required\n\nSupported targets: %s",
						strings.Join(credentials.SupportedTargets(), ", "))
				}
				return runAuth(cmd.InOrStdin(), out, args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedTargets(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored keys")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored key for a target")

	return cmd
}

func runAuth(in io.Reader, out io.Writer, target, configDir string) error {
	target = strings.ToLower(strings.TrimSpace(target))

	if !credentials.IsSupportedTarget(target) {
		return fmt.Errorf("unsupported target: %q\n\nSupported targets: %s",
			target, strings.Join(credentials.SupportedTargets(), ", "))
	}

	apiKey, err := readAPIKey(in, out, target)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(target, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored %s key %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(target),
		cliui.ValueStyle.Render(credentials.Mask(apiKey)),
		cliui.DimStyle.Render("(env "+credentials.EnvVarForTarget(target)+")"),
	)

	if _, set := os.LookupEnv(credentials.EnvVarForTarget(target)); set {
		fmt.Fprintf(out, "  %s %s is set and takes precedence over the stored key.\n",
			cliui.WarnStyle.Render("!"), credentials.EnvVarForTarget(target))
	}

	fmt.Fprintln(out)
	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	targets, err := mgr.ListTargets()
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintf(out, "\n  %s No stored keys.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'sakhi auth <target>' to store one.\n")
		fmt.Fprintf(out, "  Supported targets: %s\n\n", strings.Join(credentials.SupportedTargets(), ", "))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored keys"))
	for _, t := range targets {
		key, err := mgr.GetKey(t)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(t),
			cliui.ValueStyle.Render(credentials.Mask(key)),
			cliui.DimStyle.Render("→ "+credentials.EnvVarForTarget(t)),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, target, configDir string) error {
	target = strings.ToLower(strings.TrimSpace(target))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(target); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s key.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(target))

	return nil
}

// readAPIKey reads a key from in. A terminal gets a hidden prompt; anything
// else is read up to the first newline.
func readAPIKey(in io.Reader, out io.Writer, target string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter %s key (%s): ", target, credentials.EnvVarForTarget(target))

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}

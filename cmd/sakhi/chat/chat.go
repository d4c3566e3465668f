// Package chatcmder provides the chat command: a legal-awareness conversation
// streamed through the sakhi proxy.
package chatcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/config"
	"github.com/legalsakhi/sakhi/pkg/credentials"
	"github.com/legalsakhi/sakhi/pkg/dotdir"
	"github.com/legalsakhi/sakhi/pkg/logger"
	"github.com/legalsakhi/sakhi/pkg/prompts"
)

type chatCommander struct {
	configDir   string
	proxyTarget string
	apiKey      string
	plain       bool
	debug       bool

	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagProxyTarget,
	config.FlagClientAPIKey,
}

const chatLongDesc string = `Start a legal-awareness chat through the sakhi proxy.

Ask about your rights, the steps to take and where to get help. Replies
stream in as they are written. The chat is general information, not legal
advice.

In the interactive view:
  enter     send the message
  ctrl+p    insert the next quick prompt
  ctrl+l    clear the conversation
  esc       quit

With --plain (or when stdin is not a terminal) the chat runs line by line:
  /prompts  list the quick prompts, /1 ... /9 sends one
  /clear    clear the conversation
  /exit     quit (as does Ctrl+D)

Examples:
  sakhi chat
  sakhi chat --plain
  sakhi chat --proxy-target http://localhost:9000`

const chatShortDesc string = "Chat about your legal rights"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cmder.proxyTarget = v.GetString("client.proxy_target")
			cmder.apiKey = v.GetString("client.api_key")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyTarget, &cmder.proxyTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagClientAPIKey, &cmder.apiKey)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Line-by-line chat instead of the interactive view")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	interactive := !c.plain && isTerminal(os.Stdin) && isTerminal(os.Stdout)

	var closeLog func() error
	c.logger, closeLog = c.newLogger(interactive)
	defer func() { _ = closeLog() }()

	apiKey, err := resolveAPIKey(c.configDir, c.apiKey)
	if err != nil {
		return err
	}

	cl := client.New(client.Config{
		BaseURL: c.proxyTarget,
		APIKey:  apiKey,
	})
	catalog := prompts.Default()

	c.logger.Debug("starting chat", "proxy_target", c.proxyTarget, "interactive", interactive)

	if interactive {
		return runTUI(ctx, cl, catalog, c.logger)
	}
	return runPlain(ctx, cl, catalog, os.Stdin, os.Stdout, c.logger)
}

// newLogger keeps the interactive view clean: debug logs go to chat.log in
// the .sakhi directory, and nothing is logged otherwise.
func (c *chatCommander) newLogger(interactive bool) (*slog.Logger, func() error) {
	noop := func() error { return nil }
	if !c.debug {
		return logger.Nop(), noop
	}
	if !interactive {
		return logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(os.Stderr)), noop
	}

	path, err := dotdir.NewManager().File(c.configDir, "chat.log")
	if err != nil {
		return logger.Nop(), noop
	}
	log, closer, err := logger.NewFile(path, logger.WithDebug(true))
	if err != nil {
		return logger.Nop(), noop
	}
	return log, closer.Close
}

// resolveAPIKey prefers an explicit key and falls back to the stored proxy
// credential.
func resolveAPIKey(configDir, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	key, _, err := mgr.ResolveKey(credentials.Proxy)
	if err != nil {
		return "", fmt.Errorf("resolving proxy key: %w", err)
	}
	return key, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Package servecmder provides the serve command, which runs the sakhi proxy
// in front of the LLM gateway.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/legalsakhi/sakhi/pkg/config"
	"github.com/legalsakhi/sakhi/pkg/credentials"
	"github.com/legalsakhi/sakhi/pkg/eventstream"
	"github.com/legalsakhi/sakhi/pkg/eventstream/kafka"
	"github.com/legalsakhi/sakhi/pkg/eventstream/nop"
	"github.com/legalsakhi/sakhi/pkg/gateway"
	"github.com/legalsakhi/sakhi/pkg/logger"
	"github.com/legalsakhi/sakhi/pkg/prompts"
	"github.com/legalsakhi/sakhi/pkg/telemetry"
	"github.com/legalsakhi/sakhi/pkg/utils"
	"github.com/legalsakhi/sakhi/proxy"
)

type serveCommander struct {
	configDir string
	debug     bool

	listen         string
	gatewayURL     string
	model          string
	rateLimit      float64
	rateBurst      uint
	promptsPath    string
	traceExporter  string
	eventsProvider string
	eventsBrokers  string
	eventsTopic    string
	disableMCP     bool
	logFile        string

	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagGatewayURL,
	config.FlagGatewayModel,
	config.FlagRateLimit,
	config.FlagRateBurst,
	config.FlagPromptsPath,
	config.FlagTraceExporter,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run the sakhi proxy.

The proxy exposes the legal-awareness chat and the case-file generator as
two streaming endpoints and relays each exchange to the LLM gateway:

  POST /functions/v1/legal-chat
  POST /functions/v1/generate-case-file

The gateway key is read from SAKHI_GATEWAY_API_KEY or from the credentials
stored with "sakhi auth gateway". Without a key the proxy still starts, and
every exchange answers with a 500 explaining that the key is missing.

Also served: /healthz, /metrics (Prometheus) and /mcp (Model Context Protocol
tools for the same two flows).

Examples:
  sakhi serve
  sakhi serve --listen :9000 --rate-limit 5
  sakhi serve --prompts ./catalog.yaml --trace-exporter stdout
  sakhi serve --events-provider kafka --events-brokers localhost:9092
  sakhi serve --log-file ./sakhi-proxy.log`

const serveShortDesc string = "Run the sakhi proxy"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("proxy.listen")
			cmder.gatewayURL = v.GetString("gateway.url")
			cmder.model = v.GetString("gateway.model")
			cmder.rateLimit = v.GetFloat64("proxy.rate_limit")
			cmder.rateBurst = v.GetUint("proxy.rate_burst")
			cmder.promptsPath = v.GetString("proxy.prompts_path")
			cmder.traceExporter = v.GetString("telemetry.trace_exporter")
			cmder.eventsProvider = v.GetString("events.provider")
			cmder.eventsBrokers = v.GetString("events.brokers")
			cmder.eventsTopic = v.GetString("events.topic")
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

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayURL, &cmder.gatewayURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayModel, &cmder.model)
	config.AddFloatFlag(cmd, config.Flags, config.FlagRateLimit, &cmder.rateLimit)
	config.AddUintFlag(cmd, config.Flags, config.FlagRateBurst, &cmder.rateBurst)
	config.AddStringFlag(cmd, config.Flags, config.FlagPromptsPath, &cmder.promptsPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagTraceExporter, &cmder.traceExporter)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProv, &cmder.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)
	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Do not serve the /mcp endpoint")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, closeLog, err := c.newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "sakhi-proxy",
		ServiceVersion: utils.Version,
		Environment:    "development",
		TraceExporter:  c.traceExporter,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			c.logger.Warn("flushing traces", "error", err)
		}
	}()

	upstream, err := c.newUpstream()
	if err != nil {
		return err
	}

	store, err := c.newPromptStore(ctx)
	if err != nil {
		return err
	}

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing event publisher", "error", err)
		}
	}()

	p, err := proxy.New(proxy.Config{
		ListenAddr:      c.listen,
		Upstream:        upstream,
		Prompts:         store,
		RateLimit:       c.rateLimit,
		RateBurst:       int(c.rateBurst),
		Publisher:       publisher,
		DisableMCP:      c.disableMCP,
		ShutdownTimeout: 10 * time.Second,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}

	c.logger.Info("starting proxy",
		"addr", c.listen,
		"gateway", c.gatewayURL,
		"model", c.model,
		"events", c.eventsProvider,
		"traces", c.traceExporter,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- p.Run()
	}()

	select {
	case err := <-errChan:
		closeErr := p.Close()
		if err != nil {
			return errors.Join(fmt.Errorf("proxy error: %w", err), closeErr)
		}
		return closeErr
	case <-ctx.Done():
		c.logger.Info("shutting down proxy")
		return p.Close()
	}
}

// newLogger writes pretty records to console and, with --log-file, JSON
// records to the file as well.
func (c *serveCommander) newLogger(console io.Writer) (*slog.Logger, func() error, error) {
	pretty := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(console))
	if c.logFile == "" {
		return pretty, func() error { return nil }, nil
	}

	file, closer, err := logger.NewFile(c.logFile, logger.WithDebug(c.debug))
	if err != nil {
		return nil, nil, err
	}
	return logger.Multi(pretty, file), closer.Close, nil
}

func (c *serveCommander) newUpstream() (*gateway.Upstream, error) {
	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	key, source, err := creds.ResolveKey(credentials.Gateway)
	if err != nil {
		return nil, fmt.Errorf("resolving gateway key: %w", err)
	}
	if key == "" {
		c.logger.Warn("gateway API key is not configured, exchanges will fail",
			"env", credentials.EnvVarForTarget(credentials.Gateway),
		)
		return nil, nil
	}

	upstream, err := gateway.New(gateway.Config{
		URL:    c.gatewayURL,
		APIKey: key,
		Model:  c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring gateway: %w", err)
	}

	c.logger.Debug("gateway key resolved", "source", string(source), "key", credentials.Mask(key))
	return upstream, nil
}

func (c *serveCommander) newPromptStore(ctx context.Context) (*prompts.Store, error) {
	if c.promptsPath == "" {
		return prompts.NewStore(prompts.Default(), c.logger), nil
	}

	catalog, err := prompts.Load(c.promptsPath)
	if err != nil {
		return nil, fmt.Errorf("loading prompt catalog: %w", err)
	}
	store := prompts.NewStore(catalog, c.logger)

	go func() {
		if err := store.Watch(ctx, c.promptsPath); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("prompt catalog watcher stopped", "path", c.promptsPath, "error", err)
		}
	}()

	c.logger.Info("using prompt catalog", "path", c.promptsPath)
	return store, nil
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.eventsProvider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		brokers := config.EventsConfig{Brokers: c.eventsBrokers}.BrokerList()
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   c.eventsTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing exchange events to kafka", "brokers", brokers, "topic", c.eventsTopic)
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %q", c.eventsProvider)
	}
}

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --proxy-target
// on both "sakhi chat" and "sakhi casefile").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "proxy.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen        = "listen"
	FlagGatewayURL    = "gateway-url"
	FlagGatewayModel  = "model"
	FlagRateLimit     = "rate-limit"
	FlagRateBurst     = "rate-burst"
	FlagPromptsPath   = "prompts"
	FlagProxyTarget   = "proxy-target"
	FlagClientAPIKey  = "api-key"
	FlagTraceExporter = "trace-exporter"
	FlagEventsProv    = "events-provider"
	FlagEventsBrokers = "events-brokers"
	FlagEventsTopic   = "events-topic"
)

// Flags is the registry shared by every sakhi command.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "proxy.listen",
		Description: "Address for the proxy to listen on",
	},
	FlagGatewayURL: {
		Name:        "gateway-url",
		ViperKey:    "gateway.url",
		Description: "Chat-completions URL of the LLM gateway",
	},
	FlagGatewayModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "gateway.model",
		Description: "Model requested from the LLM gateway",
	},
	FlagRateLimit: {
		Name:        "rate-limit",
		ViperKey:    "proxy.rate_limit",
		Description: "Exchanges per second accepted by the proxy (0 disables limiting)",
	},
	FlagRateBurst: {
		Name:        "rate-burst",
		ViperKey:    "proxy.rate_burst",
		Description: "Exchanges accepted in a burst (defaults to twice the rate limit)",
	},
	FlagPromptsPath: {
		Name:        "prompts",
		ViperKey:    "proxy.prompts_path",
		Description: "YAML prompt catalog to serve instead of the built-in one (reloaded on change)",
	},
	FlagProxyTarget: {
		Name:        "proxy-target",
		Shorthand:   "p",
		ViperKey:    "client.proxy_target",
		Description: "URL of the sakhi proxy",
	},
	FlagClientAPIKey: {
		Name:        "api-key",
		ViperKey:    "client.api_key",
		Description: "Bearer token sent to the proxy, unchanged",
	},
	FlagTraceExporter: {
		Name:        "trace-exporter",
		ViperKey:    "telemetry.trace_exporter",
		Description: "Trace exporter: stdout or none",
	},
	FlagEventsProv: {
		Name:        "events-provider",
		ViperKey:    "events.provider",
		Description: "Exchange event publisher: nop or kafka",
	},
	FlagEventsBrokers: {
		Name:        "events-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma separated Kafka brokers",
	},
	FlagEventsTopic: {
		Name:        "events-topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for exchange events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultFloat(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultFloat returns the default float64 value for a viper key from NewDefaultConfig.
func defaultFloat(viperKey string) float64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetFloat64(viperKey)
}

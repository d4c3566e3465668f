package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent sakhi configuration stored as config.toml
// in the .sakhi/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Proxy     ProxyConfig     `toml:"proxy"`
	Client    ClientConfig    `toml:"client"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Events    EventsConfig    `toml:"events"`
}

// GatewayConfig holds the LLM gateway settings used by `sakhi serve`. The
// gateway API key is never stored here; see pkg/credentials.
type GatewayConfig struct {
	URL   string `toml:"url,omitempty"`
	Model string `toml:"model,omitempty"`
}

// ProxyConfig holds proxy-specific settings.
type ProxyConfig struct {
	Listen      string  `toml:"listen,omitempty"`
	RateLimit   float64 `toml:"rate_limit,omitempty"`
	RateBurst   uint    `toml:"rate_burst,omitempty"`
	PromptsPath string  `toml:"prompts_path,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// proxy (sakhi chat, sakhi casefile). ProxyTarget is a full URL.
type ClientConfig struct {
	ProxyTarget string `toml:"proxy_target,omitempty"`
	APIKey      string `toml:"api_key,omitempty"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	TraceExporter string `toml:"trace_exporter,omitempty"`
}

// EventsConfig selects where exchange events are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// BrokerList splits the comma separated broker list.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"gateway.url": {
		get: func(c *Config) string { return c.Gateway.URL },
		set: func(c *Config, v string) error { c.Gateway.URL = v; return nil },
	},
	"gateway.model": {
		get: func(c *Config) string { return c.Gateway.Model },
		set: func(c *Config, v string) error { c.Gateway.Model = v; return nil },
	},
	"proxy.listen": {
		get: func(c *Config) string { return c.Proxy.Listen },
		set: func(c *Config, v string) error { c.Proxy.Listen = v; return nil },
	},
	"proxy.rate_limit": {
		get: func(c *Config) string {
			if c.Proxy.RateLimit == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Proxy.RateLimit, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid value for proxy.rate_limit: %q", v)
			}
			c.Proxy.RateLimit = f
			return nil
		},
	},
	"proxy.rate_burst": {
		get: func(c *Config) string {
			if c.Proxy.RateBurst == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Proxy.RateBurst), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for proxy.rate_burst: %w", err)
			}
			c.Proxy.RateBurst = uint(n)
			return nil
		},
	},
	"proxy.prompts_path": {
		get: func(c *Config) string { return c.Proxy.PromptsPath },
		set: func(c *Config, v string) error { c.Proxy.PromptsPath = v; return nil },
	},
	"client.proxy_target": {
		get: func(c *Config) string { return c.Client.ProxyTarget },
		set: func(c *Config, v string) error { c.Client.ProxyTarget = v; return nil },
	},
	"client.api_key": {
		get: func(c *Config) string { return c.Client.APIKey },
		set: func(c *Config, v string) error { c.Client.APIKey = v; return nil },
	},
	"telemetry.trace_exporter": {
		get: func(c *Config) string { return c.Telemetry.TraceExporter },
		set: func(c *Config, v string) error {
			switch v {
			case "stdout", "none":
				c.Telemetry.TraceExporter = v
				return nil
			}
			return fmt.Errorf("invalid value for telemetry.trace_exporter: %q (expected stdout or none)", v)
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case "nop", "kafka":
				c.Events.Provider = v
				return nil
			}
			return fmt.Errorf("invalid value for events.provider: %q (expected nop or kafka)", v)
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

package config

const (
	defaultGatewayURL   = "https://ai.gateway.lovable.dev/v1/chat/completions"
	defaultGatewayModel = "google/gemini-3-flash-preview"

	defaultProxyListen       = ":8090"
	defaultClientProxyTarget = "http://localhost:8090"

	defaultTraceExporter = "none"

	defaultEventsProvider = "nop"
	defaultEventsBrokers  = "localhost:9092"
	defaultEventsTopic    = "sakhi.exchanges"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Gateway: GatewayConfig{
			URL:   defaultGatewayURL,
			Model: defaultGatewayModel,
		},
		Proxy: ProxyConfig{
			Listen: defaultProxyListen,
		},
		Client: ClientConfig{
			ProxyTarget: defaultClientProxyTarget,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: defaultTraceExporter,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Brokers:  defaultEventsBrokers,
			Topic:    defaultEventsTopic,
		},
	}
}

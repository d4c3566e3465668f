package credentials

// Credentials represents the stored API credentials in credentials.toml.
type Credentials struct {
	Version int                   `toml:"version"`
	Keys    map[string]Credential `toml:"keys"`
}

// Credential holds the API key for a single target.
type Credential struct {
	APIKey string `toml:"api_key"`
}

// Source says where a resolved key came from.
type Source string

const (
	SourceNone Source = ""
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

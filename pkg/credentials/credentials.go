// Package credentials stores the API keys sakhi needs in credentials.toml,
// next to config.toml in the .sakhi/ directory.
//
// Two keys exist: "gateway", the LLM gateway key used by `sakhi serve`, and
// "proxy", the bearer token the terminal client attaches to proxy requests.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/legalsakhi/sakhi/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// Gateway names the LLM gateway key.
	Gateway = "gateway"

	// Proxy names the key sent to the sakhi proxy.
	Proxy = "proxy"
)

// ErrUnknownTarget is returned for a key name other than Gateway or Proxy.
var ErrUnknownTarget = errors.New("unknown credential target")

// targetEnvVars maps key names to the environment variables that override them.
var targetEnvVars = map[string]string{
	Gateway: "SAKHI_GATEWAY_API_KEY",
	Proxy:   "SAKHI_PROXY_API_KEY",
}

// Manager manages reading and writing credentials.toml in the .sakhi/ directory.
type Manager struct {
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .sakhi/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().File(override, credentialsFile)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: path}, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Keys:    make(map[string]Credential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Keys == nil {
		creds.Keys = make(map[string]Credential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given target.
func (m *Manager) SetKey(target, key string) error {
	if !IsSupportedTarget(target) {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key must not be empty")
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Keys[target] = Credential{APIKey: key}

	return m.Save(creds)
}

// GetKey returns the stored API key for the given target.
// Returns an empty string if no key is stored.
func (m *Manager) GetKey(target string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Keys[target].APIKey, nil
}

// ResolveKey returns the key for target, preferring its environment
// variable over the stored value.
func (m *Manager) ResolveKey(target string) (string, Source, error) {
	if env := EnvVarForTarget(target); env != "" {
		if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), SourceEnv, nil
		}
	}

	key, err := m.GetKey(target)
	if err != nil {
		return "", SourceNone, err
	}
	if key == "" {
		return "", SourceNone, nil
	}
	return key, SourceFile, nil
}

// RemoveKey deletes the stored credential for a target.
func (m *Manager) RemoveKey(target string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Keys, target)

	return m.Save(creds)
}

// ListTargets returns the names of targets that have stored credentials.
func (m *Manager) ListTargets() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(creds.Keys))
	for name := range creds.Keys {
		targets = append(targets, name)
	}

	sort.Strings(targets)

	return targets, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForTarget returns the environment variable name for a given target.
// Returns an empty string for unknown targets.
func EnvVarForTarget(target string) string {
	return targetEnvVars[target]
}

// SupportedTargets returns the list of keys sakhi can store.
func SupportedTargets() []string {
	return []string{Gateway, Proxy}
}

// IsSupportedTarget returns true if the given target is supported.
func IsSupportedTarget(target string) bool {
	return slices.Contains(SupportedTargets(), target)
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}

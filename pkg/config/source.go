package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Source is where an effective setting comes from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// Setting is one key as serve, chat and casefile will see it.
type Setting struct {
	Key    string
	Value  string
	Source Source
	EnvVar string
}

// EnvVarForKey names the environment variable that overrides key, e.g.
// proxy.rate_limit is SAKHI_PROXY_RATE_LIMIT. It matches InitViper.
func EnvVarForKey(key string) string {
	return "SAKHI_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Setting resolves key with environment over file over default.
func (c *Configer) Setting(key string) (Setting, error) {
	settings, err := c.settings([]string{key})
	if err != nil {
		return Setting{}, err
	}
	return settings[0], nil
}

// Settings resolves every known key in ValidConfigKeys order.
func (c *Configer) Settings() ([]Setting, error) {
	return c.settings(ValidConfigKeys())
}

func (c *Configer) settings(keys []string) ([]Setting, error) {
	for _, key := range keys {
		if !IsValidConfigKey(key) {
			return nil, fmt.Errorf("unknown config key: %q", key)
		}
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	defined, err := c.definedKeys()
	if err != nil {
		return nil, err
	}

	out := make([]Setting, 0, len(keys))
	for _, key := range keys {
		s := Setting{
			Key:    key,
			Value:  configKeys[key].get(cfg),
			Source: SourceDefault,
			EnvVar: EnvVarForKey(key),
		}
		if defined(key) {
			s.Source = SourceFile
		}
		if v, ok := os.LookupEnv(s.EnvVar); ok {
			s.Value = v
			s.Source = SourceEnv
		}
		out = append(out, s)
	}
	return out, nil
}

// definedKeys reports which dotted keys config.toml sets explicitly.
func (c *Configer) definedKeys() (func(string) bool, error) {
	none := func(string) bool { return false }
	if c.targetPath == "" {
		return none, nil
	}

	var raw map[string]any
	md, err := toml.DecodeFile(c.targetPath, &raw)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return none, nil
		}
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	return func(key string) bool {
		return md.IsDefined(strings.Split(key, ".")...)
	}, nil
}

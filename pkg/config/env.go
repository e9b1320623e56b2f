package config

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "WORDTRIE_"

type envBinding struct {
	key   string
	apply func(c *Config, raw string) error
}

func intBinding(key string, field func(*Config) *int) envBinding {
	return envBinding{key, func(c *Config, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}}
}

func boolBinding(key string, field func(*Config) *bool) envBinding {
	return envBinding{key, func(c *Config, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}}
}

func stringBinding(key string, field func(*Config) *string) envBinding {
	return envBinding{key, func(c *Config, raw string) error {
		*field(c) = raw
		return nil
	}}
}

var envBindings = []envBinding{
	intBinding("TOP_K", func(c *Config) *int { return &c.Trie.TopK }),
	intBinding("LOCK_TIMEOUT_MS", func(c *Config) *int { return &c.Trie.LockTimeoutMs }),
	boolBinding("CASE_SENSITIVE", func(c *Config) *bool { return &c.Vocab.CaseSensitive }),
	intBinding("DEFAULT_LIMIT", func(c *Config) *int { return &c.Server.DefaultLimit }),
	intBinding("MAX_LIMIT", func(c *Config) *int { return &c.Server.MaxLimit }),
	intBinding("STATS_INTERVAL", func(c *Config) *int { return &c.Server.StatsInterval }),
	stringBinding("PEER_ADDR", func(c *Config) *string { return &c.Peer.Addr }),
	stringBinding("PEER_LISTEN", func(c *Config) *string { return &c.Peer.Listen }),
	intBinding("PEER_IO_TIMEOUT_MS", func(c *Config) *int { return &c.Peer.IOTimeoutMs }),
}

// ApplyEnv overrides config values from WORDTRIE_* environment variables.
// Values that fail to parse are logged and skipped. It returns the names of
// the variables that were applied.
func (c *Config) ApplyEnv() []string {
	var applied []string
	for _, b := range envBindings {
		name := EnvPrefix + b.key
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := b.apply(c, raw); err != nil {
			log.Warnf("Ignoring %s=%q: %v", name, raw, err)
			continue
		}
		applied = append(applied, name)
	}
	if len(applied) > 0 {
		log.Debugf("Config overridden from environment: %v", applied)
	}
	return applied
}

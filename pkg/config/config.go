/*
Package config manages the TOML config for wordtrie.

Every key has a builtin default, so a config file only needs the keys it
changes. A file that fails to decode as a whole is recovered section by section
and key by key; whatever cannot be read keeps its default. Environment variables
prefixed with WORDTRIE_ override the file, see ApplyEnv.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/wordtrie/internal/utils"
	"github.com/charmbracelet/log"
)

const appDir = "wordtrie"

// Config holds the entire config structure
type Config struct {
	Trie   TrieConfig   `toml:"trie"`
	Vocab  VocabConfig  `toml:"vocab"`
	Server ServerConfig `toml:"server"`
	Peer   PeerConfig   `toml:"peer"`
	CLI    CliConfig    `toml:"cli"`
}

// TrieConfig tunes the prefix tree.
type TrieConfig struct {
	// TopK is the number of completions cached per node; 0 caches all of them.
	TopK          int `toml:"top_k"`
	LockTimeoutMs int `toml:"lock_timeout_ms"`
}

// VocabConfig holds the vocabulary policy.
type VocabConfig struct {
	CaseSensitive bool `toml:"case_sensitive"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
	MinPrefix    int `toml:"min_prefix"`
	MaxPrefix    int `toml:"max_prefix"`
	// StatsInterval is in seconds; 0 disables periodic stats logging.
	StatsInterval int `toml:"stats_interval"`
}

// PeerConfig holds the network completion options.
type PeerConfig struct {
	Addr          string `toml:"addr"`
	Listen        string `toml:"listen"`
	DialTimeoutMs int    `toml:"dial_timeout_ms"`
	IOTimeoutMs   int    `toml:"io_timeout_ms"`
	// IdleTimeoutMs closes served peer connections that stay silent; 0 keeps them open.
	IdleTimeoutMs int `toml:"idle_timeout_ms"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit  int `toml:"default_limit"`
	DefaultMinLen int `toml:"default_min_len"`
	DefaultMaxLen int `toml:"default_max_len"`
}

// LockTimeout is the trie guard timeout as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Trie.LockTimeoutMs) * time.Millisecond
}

// DialTimeout bounds connecting to a peer.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Peer.DialTimeoutMs) * time.Millisecond
}

// IOTimeout bounds one peer exchange.
func (c *Config) IOTimeout() time.Duration {
	return time.Duration(c.Peer.IOTimeoutMs) * time.Millisecond
}

// IdleTimeout is how long the peer server keeps a silent connection.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Peer.IdleTimeoutMs) * time.Millisecond
}

// StatsInterval is the period of the stats reporter.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Server.StatsInterval) * time.Second
}

// FitTopK reconciles trie.top_k with the configured limits. A finite top_k
// caps every lookup, so with raise set it grows to the largest default limit.
// Without raise the cap stays and a warning names it. It reports whether top_k changed.
func (c *Config) FitTopK(raise bool) bool {
	limit := max(c.CLI.DefaultLimit, c.Server.DefaultLimit)
	if c.Trie.TopK <= 0 || limit <= c.Trie.TopK {
		return false
	}
	if !raise {
		log.Warnf("Limit %d exceeds top_k %d; results are capped at %d", limit, c.Trie.TopK, c.Trie.TopK)
		return false
	}
	log.Debugf("Raising top_k from %d to %d to match the limit", c.Trie.TopK, limit)
	c.Trie.TopK = limit
	return true
}

// GetConfigDir returns the config directory with fallback priority:
// 1. $XDG_CONFIG_HOME/wordtrie or ~/.config/wordtrie
// 2. ~/Library/Application Support/wordtrie (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		path := filepath.Join(xdg, appDir)
		if result := utils.CheckDirStatus(path); result.Writable {
			return path, nil
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", appDir)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", appDir)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [UserConfigDir]/wordtrie/config.toml
// 3. Builtin defaults
//
// It returns the path the config came from, empty for builtin defaults.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
// top_k matches the default limits, so capped results equal uncapped ones.
func DefaultConfig() *Config {
	return &Config{
		Trie: TrieConfig{
			TopK:          10,
			LockTimeoutMs: 10000,
		},
		Vocab: VocabConfig{
			CaseSensitive: false,
		},
		Server: ServerConfig{
			DefaultLimit:  10,
			MaxLimit:      64,
			MinPrefix:     0,
			MaxPrefix:     60,
			StatsInterval: 0,
		},
		Peer: PeerConfig{
			Addr:          "",
			Listen:        "",
			DialTimeoutMs: 2000,
			IOTimeoutMs:   5000,
			IdleTimeoutMs: 0,
		},
		CLI: CliConfig{
			DefaultLimit:  10,
			DefaultMinLen: 1,
			DefaultMaxLen: 60,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file, recovering what it can from a broken one
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "trie"); ok {
		extractTrieConfig(section, &config.Trie)
	}
	if section, ok := utils.ExtractSection(tempConfig, "vocab"); ok {
		if val, ok := utils.ExtractBool(section, "case_sensitive"); ok {
			config.Vocab.CaseSensitive = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "peer"); ok {
		extractPeerConfig(section, &config.Peer)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractTrieConfig(data map[string]any, trie *TrieConfig) {
	if val, ok := utils.ExtractInt(data, "top_k"); ok {
		trie.TopK = val
	}
	if val, ok := utils.ExtractInt(data, "lock_timeout_ms"); ok {
		trie.LockTimeoutMs = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt(data, "default_limit"); ok {
		server.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractInt(data, "stats_interval"); ok {
		server.StatsInterval = val
	}
}

func extractPeerConfig(data map[string]any, peer *PeerConfig) {
	if val, ok := utils.ExtractString(data, "addr"); ok {
		peer.Addr = val
	}
	if val, ok := utils.ExtractString(data, "listen"); ok {
		peer.Listen = val
	}
	if val, ok := utils.ExtractInt(data, "dial_timeout_ms"); ok {
		peer.DialTimeoutMs = val
	}
	if val, ok := utils.ExtractInt(data, "io_timeout_ms"); ok {
		peer.IOTimeoutMs = val
	}
	if val, ok := utils.ExtractInt(data, "idle_timeout_ms"); ok {
		peer.IdleTimeoutMs = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt(data, "default_min_len"); ok {
		cli.DefaultMinLen = val
	}
	if val, ok := utils.ExtractInt(data, "default_max_len"); ok {
		cli.DefaultMaxLen = val
	}
}

// RebuildConfigFile force creates a new config.toml with defaults at the default path
func RebuildConfigFile() (string, error) {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return "", err
	}
	return defaultPath, SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		return "builtin defaults"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

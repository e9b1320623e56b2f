package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	config, err := InitConfig(path)
	if err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	if !reflect.DeepEqual(config, DefaultConfig()) {
		t.Errorf("expected defaults, got %+v", config)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(reloaded, DefaultConfig()) {
		t.Errorf("saved defaults did not round-trip: %+v", reloaded)
	}
}

func TestLoadConfigOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
[trie]
top_k = 3

[peer]
addr = "127.0.0.1:7777"
`)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	expected := DefaultConfig()
	expected.Trie.TopK = 3
	expected.Peer.Addr = "127.0.0.1:7777"
	if !reflect.DeepEqual(config, expected) {
		t.Errorf("expected %+v, got %+v", expected, config)
	}
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	testCases := []struct {
		content     string
		check       func(*Config) bool
		description string
	}{
		{
			content:     "[trie]\ntop_k = \"ten\"\nlock_timeout_ms = 250\n",
			check:       func(c *Config) bool { return c.Trie.TopK == 10 && c.Trie.LockTimeoutMs == 250 },
			description: "Mistyped key keeps default",
		},
		{
			content:     "[server]\nmax_limit = 5\n[vocab]\ncase_sensitive = \"yes\"\n",
			check:       func(c *Config) bool { return c.Server.MaxLimit == 5 && !c.Vocab.CaseSensitive },
			description: "Other sections survive",
		},
		{
			content:     "[peer]\nlisten = 42\naddr = \"host:1\"\n",
			check:       func(c *Config) bool { return c.Peer.Listen == "" && c.Peer.Addr == "host:1" },
			description: "String keys",
		},
		{
			content:     "this is not toml ===",
			check:       func(c *Config) bool { return reflect.DeepEqual(c, DefaultConfig()) },
			description: "Unparseable file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tc.content))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if !tc.check(config) {
				t.Errorf("unexpected config %+v", config)
			}
		})
	}
}

func TestLoadConfigWithPriority(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	custom := writeConfig(t, "[cli]\ndefault_limit = 4\n")
	config, path, err := LoadConfigWithPriority(custom)
	if err != nil {
		t.Fatal(err)
	}
	if path != custom || config.CLI.DefaultLimit != 4 {
		t.Errorf("expected custom config, got %s %+v", path, config.CLI)
	}

	config, path, err = LoadConfigWithPriority(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "config.toml" || !reflect.DeepEqual(config, DefaultConfig()) {
		t.Errorf("expected fresh default config, got %s %+v", path, config)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file was not created: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WORDTRIE_TOP_K", "0")
	t.Setenv("WORDTRIE_CASE_SENSITIVE", "true")
	t.Setenv("WORDTRIE_PEER_ADDR", "10.0.0.1:9000")
	t.Setenv("WORDTRIE_MAX_LIMIT", "lots")

	config := DefaultConfig()
	applied := config.ApplyEnv()

	if config.Trie.TopK != 0 || !config.Vocab.CaseSensitive || config.Peer.Addr != "10.0.0.1:9000" {
		t.Errorf("env overrides not applied: %+v", config)
	}
	if config.Server.MaxLimit != DefaultConfig().Server.MaxLimit {
		t.Errorf("invalid value should be skipped, got max_limit %d", config.Server.MaxLimit)
	}
	if len(applied) != 3 {
		t.Errorf("expected 3 applied overrides, got %v", applied)
	}
}

func TestDurations(t *testing.T) {
	config := DefaultConfig()
	if config.LockTimeout() != 10*time.Second {
		t.Errorf("expected 10s lock timeout, got %v", config.LockTimeout())
	}
	config.Server.StatsInterval = 30
	if config.StatsInterval() != 30*time.Second {
		t.Errorf("expected 30s stats interval, got %v", config.StatsInterval())
	}
	if config.IOTimeout() != 5*time.Second || config.DialTimeout() != 2*time.Second {
		t.Errorf("unexpected peer timeouts %v %v", config.IOTimeout(), config.DialTimeout())
	}
}

func TestFitTopK(t *testing.T) {
	testCases := []struct {
		topK, limit int
		raise       bool
		expected    int
		changed     bool
		description string
	}{
		{10, 20, true, 20, true, "Limit above top_k raises it"},
		{10, 20, false, 10, false, "Explicit top_k is kept"},
		{10, 5, true, 10, false, "Limit within top_k"},
		{0, 50, true, 0, false, "Unbounded top_k"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Trie.TopK = tc.topK
			cfg.CLI.DefaultLimit = tc.limit
			cfg.Server.DefaultLimit = tc.limit

			if changed := cfg.FitTopK(tc.raise); changed != tc.changed {
				t.Errorf("expected changed=%v, got %v", tc.changed, changed)
			}
			if cfg.Trie.TopK != tc.expected {
				t.Errorf("expected top_k %d, got %d", tc.expected, cfg.Trie.TopK)
			}
		})
	}
}

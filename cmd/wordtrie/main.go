// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the wordtrie completion tool.

wordtrie answers prefix completions over a vocabulary of weighted words. The
vocabulary is loaded once into a prefix tree whose nodes cache their best
completions, so every lookup is a walk down the prefix.

# Usage

Without a mode flag wordtrie reads a bulk dictionary block followed by a query
batch from stdin and prints the completions of every prefix, each group ended
by a blank line:

	$ printf '3\nhello 10\nhelp 30\nworld 5\n2\nhel\nx\n' | wordtrie
	help
	hello

	(blank line for the miss)

Load the dictionary from a file instead, and only read the batch from stdin:

	wordtrie -dict words.txt < queries.txt

Other modes:

	wordtrie -dict words.txt -c               interactive prompt
	wordtrie -dict words.txt -serve           msgpack IPC on stdin/stdout
	wordtrie -dict words.txt -listen :7070    answer "get <prefix>" peers over TCP
	wordtrie -peer host:7070 < queries.txt    forward lookups to a peer
	wordtrie -bench < input.txt               batch mode with elapsed time

# Configuration

Settings come from config.toml in the user config directory (created with
defaults on first run) or from -config. WORDTRIE_* environment variables, also
read from a .env file in the working directory, override the file, and flags
override both:

	[trie]
	top_k = 10
	lock_timeout_ms = 10000

	[vocab]
	case_sensitive = false

	[server]
	default_limit = 10
	max_limit = 64
	stats_interval = 0

	[peer]
	addr = ""
	listen = ""

A finite top_k caps every lookup at top_k results even when the limit is
larger; the IPC "scan" action walks the full subtree instead.

# Command Line Flags

	-version      Show current version
	-d            Toggle debug mode
	-config path  Config file to use
	-init-config  Rewrite the default config file and exit
	-dict path    Dictionary file (count line, then "<word> <weight>" lines)
	-k int        Completions cached per trie node, 0 for all
	-case         Match case sensitively
	-limit int    Completions per prefix
	-prmin, -prmax  Prefix length bounds for the interactive prompt
	-c            Interactive prompt
	-serve        msgpack IPC server
	-listen addr  Peer server address
	-peer addr    Peer to forward lookups to
	-bench        Report elapsed time of a batch run
*/
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bastiangx/wordtrie/internal/cli"
	"github.com/bastiangx/wordtrie/internal/logger"
	"github.com/bastiangx/wordtrie/internal/monitor"
	"github.com/bastiangx/wordtrie/internal/utils"
	"github.com/bastiangx/wordtrie/pkg/config"
	"github.com/bastiangx/wordtrie/pkg/dictionary"
	"github.com/bastiangx/wordtrie/pkg/peer"
	"github.com/bastiangx/wordtrie/pkg/server"
	"github.com/bastiangx/wordtrie/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	Version = "0.1.0"
	AppName = "wordtrie"
	gh      = "https://github.com/bastiangx/wordtrie"

	shutdownGrace = 3 * time.Second
)

// sigHandler cancels the run on the first SIGINT or SIGTERM and exits
// if the current mode has not returned shortly after.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		time.AfterFunc(shutdownGrace, func() { os.Exit(0) })
	}()
}

type flags struct {
	showVersion   *bool
	debugMode     *bool
	configPath    *string
	initConfig    *bool
	dictPath      *string
	topK          *int
	caseSensitive *bool
	limit         *int
	minPrefix     *int
	maxPrefix     *int
	cliMode       *bool
	serveMode     *bool
	listenAddr    *string
	peerAddr      *string
	bench         *bool
}

func parseFlags() flags {
	defaults := config.DefaultConfig()
	f := flags{
		showVersion:   flag.Bool("version", false, "Show current version"),
		debugMode:     flag.Bool("d", false, "Toggle debug mode"),
		configPath:    flag.String("config", "", "Path to a custom config.toml"),
		initConfig:    flag.Bool("init-config", false, "Rewrite the default config file with defaults and exit"),
		dictPath:      flag.String("dict", "", "Dictionary file; without it the dictionary block is read from stdin"),
		topK:          flag.Int("k", defaults.Trie.TopK, "Completions cached per trie node (0 caches all)"),
		caseSensitive: flag.Bool("case", defaults.Vocab.CaseSensitive, "Match words case sensitively"),
		limit:         flag.Int("limit", cli.DefaultBatchLimit, "Number of completions per prefix"),
		minPrefix:     flag.Int("prmin", defaults.CLI.DefaultMinLen, "Minimum prefix length in the interactive prompt"),
		maxPrefix:     flag.Int("prmax", defaults.CLI.DefaultMaxLen, "Maximum prefix length in the interactive prompt"),
		cliMode:       flag.Bool("c", false, "Run the interactive prompt -- useful for testing and debugging"),
		serveMode:     flag.Bool("serve", false, "Run the msgpack IPC server on stdin/stdout"),
		listenAddr:    flag.String("listen", "", "Serve peer completion requests on this TCP address"),
		peerAddr:      flag.String("peer", "", "Forward lookups to the peer at this TCP address"),
		bench:         flag.Bool("bench", false, "Report the elapsed time of the batch run"),
	}
	flag.Parse()
	return f
}

// applyFlags lets explicitly set flags win over config and environment.
// A -limit above a finite top_k raises top_k unless -k was given as well.
func applyFlags(f flags, cfg *config.Config) {
	var limitSet, kSet bool

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "k":
			kSet = true
			cfg.Trie.TopK = *f.topK
		case "case":
			cfg.Vocab.CaseSensitive = *f.caseSensitive
		case "limit":
			limitSet = true
			cfg.CLI.DefaultLimit = *f.limit
			cfg.Server.DefaultLimit = *f.limit
		case "prmin":
			cfg.CLI.DefaultMinLen = *f.minPrefix
		case "prmax":
			cfg.CLI.DefaultMaxLen = *f.maxPrefix
		case "listen":
			cfg.Peer.Listen = *f.listenAddr
		case "peer":
			cfg.Peer.Addr = *f.peerAddr
		}
	})

	if limitSet {
		cfg.FitTopK(!kSet)
	}
}

// main wires config, vocabulary and the selected mode together.
// It does not implement logic for them and only manages the flow.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigHandler(cancel)

	f := parseFlags()

	if *f.showVersion {
		showVersion()
		os.Exit(0)
	}

	if *f.debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	if *f.initConfig {
		path, err := config.RebuildConfigFile()
		if err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		log.Printf("Wrote default config to %s", path)
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg, configPath, err := config.LoadConfigWithPriority(*f.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ApplyEnv()
	applyFlags(f, cfg)
	log.Debugf("Using config: %s", config.GetActiveConfigPath(configPath))

	stdin := bufio.NewReader(os.Stdin)
	vocab := buildVocabulary(ctx, cfg, configPath, *f.dictPath, stdin)

	switch {
	case cfg.Peer.Listen != "":
		showStartupInfo(vocab, configPath)
		stop := startMonitor(vocab, cfg)
		defer stop()

		srv := peer.NewServer(vocab, cfg.Server.DefaultLimit, cfg.IdleTimeout())
		if err := srv.ListenAndServe(ctx, cfg.Peer.Listen); err != nil {
			log.Fatalf("Peer server error: %v", err)
		}

	case *f.serveMode:
		requireDictionary(*f.dictPath, cfg)
		showStartupInfo(vocab, configPath)
		stop := startMonitor(vocab, cfg)
		defer stop()

		srv := server.NewServer(vocab, cfg.Server, stdin, os.Stdout)
		if err := srv.Serve(ctx); err != nil {
			log.Fatalf("IPC server error: %v", err)
		}

	case *f.cliMode:
		requireDictionary(*f.dictPath, cfg)
		log.SetReportTimestamp(false)
		log.Debug("Input info:",
			"minPrefix", cfg.CLI.DefaultMinLen,
			"maxPrefix", cfg.CLI.DefaultMaxLen,
			"limit", cfg.CLI.DefaultLimit)

		inputHandler := cli.NewInputHandler(vocab, cfg.CLI.DefaultMinLen, cfg.CLI.DefaultMaxLen, cfg.CLI.DefaultLimit)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}

	default:
		start := time.Now()
		n, err := cli.RunBatch(stdin, os.Stdout, vocab, cfg.CLI.DefaultLimit)
		if err != nil {
			log.Fatalf("Batch error: %v", err)
		}
		if *f.bench {
			elapsed := time.Since(start)
			fmt.Printf("\n%v %d prefixes %d ms\n", elapsed, n, elapsed.Milliseconds())
		}
	}
}

// buildVocabulary connects to a peer or loads the dictionary, from -dict or
// from the head of stdin. Any failure is fatal.
func buildVocabulary(ctx context.Context, cfg *config.Config, configPath, dictPath string, stdin *bufio.Reader) *suggest.Vocabulary {
	if cfg.Peer.Addr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout())
		defer cancel()
		client, err := peer.Dial(dialCtx, cfg.Peer.Addr, cfg.IOTimeout())
		if err != nil {
			log.Fatalf("Failed to reach peer: %v", err)
		}
		log.Debugf("Forwarding lookups to %s", client.Addr())
		return suggest.NewNetwork(client, suggest.WithCaseSensitive(cfg.Vocab.CaseSensitive))
	}

	var (
		entries []dictionary.Entry
		err     error
	)
	start := time.Now()
	if dictPath != "" {
		entries, err = loadDictionary(dictPath, configPath)
	} else {
		var stats dictionary.LoadStats
		entries, stats, err = dictionary.ReadFrom(stdin)
		log.Debugf("Read %d lines, %d duplicates", stats.Lines, stats.Duplicates)
	}
	if err != nil {
		log.Fatalf("Failed to load dictionary: %v", err)
	}

	vocab := suggest.New(entries,
		suggest.WithTopK(cfg.Trie.TopK),
		suggest.WithCaseSensitive(cfg.Vocab.CaseSensitive),
		suggest.WithLockTimeout(cfg.LockTimeout()),
	)
	log.Debugf("Loaded %s words in %v", utils.FormatWithCommas(vocab.Len()), time.Since(start))
	return vocab
}

func loadDictionary(path, configPath string) ([]dictionary.Entry, error) {
	configDir := ""
	if configPath != "" {
		configDir = filepath.Dir(configPath)
	}
	resolver, err := utils.NewPathResolver(configDir)
	if err != nil {
		return nil, err
	}
	resolved, err := resolver.ResolveFile(path)
	if err != nil {
		return nil, err
	}
	log.Debugf("Using dictionary at: %s", resolved)
	return dictionary.ReadFile(resolved)
}

// requireDictionary stops modes that need stdin for themselves when the
// dictionary would also have to come from stdin.
func requireDictionary(dictPath string, cfg *config.Config) {
	if dictPath == "" && cfg.Peer.Addr == "" {
		log.Fatal("This mode reads stdin; pass the dictionary with -dict or use -peer")
	}
}

func startMonitor(vocab *suggest.Vocabulary, cfg *config.Config) func() {
	if cfg.Server.StatsInterval <= 0 {
		return func() {}
	}
	reporter, err := monitor.Start(vocab, cfg.StatsInterval(), nil)
	if err != nil {
		log.Warnf("Stats reporting disabled: %v", err)
		return func() {}
	}
	return func() {
		if err := reporter.Stop(); err != nil {
			log.Warnf("Stopping stats reporter: %v", err)
		}
	}
}

func showVersion() {
	banner := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ wordtrie ] Weighted prefix completions!")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(vocab *suggest.Vocabulary, configPath string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" " + AppName + " ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("config: ( %s )", config.GetActiveConfigPath(configPath))
	if vocab.Remote() {
		log.Info("vocabulary: remote")
	} else {
		log.Infof("vocabulary: %s words", utils.FormatWithCommas(vocab.Len()))
	}
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}

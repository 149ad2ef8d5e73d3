// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads, saves and validates the eToken engine configuration.
//
// The on-disk format is a flat key = value file. Lines starting with '#' and
// blank lines are ignored, as are keys this version does not know about.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultFeeRate is the relay fee in satoshis per kilobyte.
	DefaultFeeRate uint64 = 1200

	// DefaultRequestTimeout bounds a single indexer query.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultBroadcastTimeout bounds a single broadcast attempt.
	DefaultBroadcastTimeout = 5 * time.Second

	// DefaultCacheStaleAfter is how long a cached supply record is served
	// before a resync is due.
	DefaultCacheStaleAfter = 5 * time.Minute

	configFileName = "config"
	dataDirName    = ".etoken"
)

// Config holds the engine settings.
type Config struct {
	DataDir          string
	Network          string
	Endpoints        []string // ordered by priority; empty means network presets
	DNSSeed          string   // optional domain publishing endpoint TXT records
	LogLevel         string
	LogFile          string
	LogJSON          bool
	FeeRate          uint64
	RequestTimeout   time.Duration
	BroadcastTimeout time.Duration
	CacheStaleAfter  time.Duration
	MetricsAddr      string // host:port for /metrics; empty disables
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		Network:          "mainnet",
		LogLevel:         "info",
		FeeRate:          DefaultFeeRate,
		RequestTimeout:   DefaultRequestTimeout,
		BroadcastTimeout: DefaultBroadcastTimeout,
		CacheStaleAfter:  DefaultCacheStaleAfter,
	}
}

// DefaultDataDir returns ~/.etoken, falling back to ./.etoken when the home
// directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(filepath.Clean(dataDir), configFileName)
}

// LoadConfig reads a config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# eToken Configuration\n")
	b.WriteString("# Endpoints are tried in the order listed.\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "endpoints = %s\n", strings.Join(cfg.Endpoints, ","))
	fmt.Fprintf(&b, "dnsseed = %s\n", cfg.DNSSeed)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "logjson = %t\n", cfg.LogJSON)
	fmt.Fprintf(&b, "feerate = %d\n", cfg.FeeRate)
	fmt.Fprintf(&b, "requesttimeout = %s\n", cfg.RequestTimeout)
	fmt.Fprintf(&b, "broadcasttimeout = %s\n", cfg.BroadcastTimeout)
	fmt.Fprintf(&b, "cachestale = %s\n", cfg.CacheStaleAfter)
	fmt.Fprintf(&b, "metrics = %s\n", cfg.MetricsAddr)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// parseKeyValue splits a line on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "endpoints":
		c.Endpoints = splitList(value)
	case "dnsseed":
		c.DNSSeed = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "logjson":
		c.LogJSON, err = strconv.ParseBool(value)
	case "feerate":
		c.FeeRate, err = strconv.ParseUint(value, 10, 64)
	case "requesttimeout":
		c.RequestTimeout, err = time.ParseDuration(value)
	case "broadcasttimeout":
		c.BroadcastTimeout, err = time.ParseDuration(value)
	case "cachestale":
		c.CacheStaleAfter, err = time.ParseDuration(value)
	case "metrics":
		c.MetricsAddr = value
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

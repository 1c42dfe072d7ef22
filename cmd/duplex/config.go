package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/Zereker/duplex"
)

type fileConfig struct {
	Addr         string `toml:"addr"`
	Verbose      bool   `toml:"verbose"`
	Codec        string `toml:"codec"`
	InboxSize    int    `toml:"inbox_size"`
	OutboxSize   int    `toml:"outbox_size"`
	WriteTimeout string `toml:"write_timeout"`
	MetricsAddr  string `toml:"metrics_addr"`
}

// config is the effective CLI configuration: defaults, then the config
// file, then explicitly set flags.
type config struct {
	Addr         string
	Verbose      bool
	Codec        string
	InboxSize    int
	OutboxSize   int
	WriteTimeout time.Duration
	MetricsAddr  string
}

func defaultConfig() config {
	return config{
		Codec:        "marker",
		WriteTimeout: 30 * time.Second,
	}
}

func loadConfig(path string, cfg config) (config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}

	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	if meta.IsDefined("codec") {
		cfg.Codec = strings.ToLower(strings.TrimSpace(raw.Codec))
	}

	if meta.IsDefined("inbox_size") {
		cfg.InboxSize = raw.InboxSize
	}

	if meta.IsDefined("outbox_size") {
		cfg.OutboxSize = raw.OutboxSize
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return config{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	return cfg, nil
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(cfg config, flags *pflag.FlagSet) config {
	if f := flags.Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if f := flags.Lookup("verbose"); f != nil && f.Changed {
		cfg.Verbose = f.Value.String() == "true"
	}
	if f := flags.Lookup("codec"); f != nil && f.Changed {
		cfg.Codec = strings.ToLower(f.Value.String())
	}
	if f := flags.Lookup("metrics-addr"); f != nil && f.Changed {
		cfg.MetricsAddr = f.Value.String()
	}
	return cfg
}

func (c config) codec() (duplex.Codec, error) {
	switch c.Codec {
	case "", "marker":
		return duplex.MarkerCodec{}, nil
	case "length":
		return duplex.LengthCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q (want marker or length)", c.Codec)
	}
}

// options converts the configuration into connection options.
func (c config) options() ([]duplex.Option, error) {
	codec, err := c.codec()
	if err != nil {
		return nil, err
	}

	return []duplex.Option{
		duplex.CodecOption(codec),
		duplex.InboxSizeOption(c.InboxSize),
		duplex.OutboxSizeOption(c.OutboxSize),
		duplex.WriteTimeoutOption(c.WriteTimeout),
	}, nil
}

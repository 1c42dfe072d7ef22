package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/Zereker/duplex"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "duplex.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
addr = " 10.0.0.1:9000 "
verbose = true
codec = "LENGTH"
inbox_size = 64
outbox_size = 128
write_timeout = "5s"
metrics_addr = ":9090"
`)

	cfg, err := loadConfig(path, defaultConfig())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	want := config{
		Addr:         "10.0.0.1:9000",
		Verbose:      true,
		Codec:        "length",
		InboxSize:    64,
		OutboxSize:   128,
		WriteTimeout: 5 * time.Second,
		MetricsAddr:  ":9090",
	}
	if cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfig_KeepsUnsetValues(t *testing.T) {
	path := writeConfig(t, `inbox_size = 8`)

	base := defaultConfig()
	base.Addr = duplex.DefaultConnectAddr

	cfg, err := loadConfig(path, base)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Addr != duplex.DefaultConnectAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, duplex.DefaultConnectAddr)
	}
	if cfg.Codec != "marker" {
		t.Errorf("Codec = %q, want marker", cfg.Codec)
	}
	if cfg.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", cfg.WriteTimeout)
	}
	if cfg.InboxSize != 8 {
		t.Errorf("InboxSize = %d, want 8", cfg.InboxSize)
	}
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := writeConfig(t, `write_timeout = "soon"`)

	if _, err := loadConfig(path, defaultConfig()); err == nil {
		t.Error("expected error for an invalid write_timeout")
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	if _, err := loadConfig(path, defaultConfig()); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, `addr = `)

	if _, err := loadConfig(path, defaultConfig()); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestApplyFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.String("codec", "marker", "")
	flags.String("metrics-addr", "", "")

	if err := flags.Parse([]string{"--addr", "127.0.0.1:1", "-v", "--codec", "Length"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	base := defaultConfig()
	base.MetricsAddr = ":9090"

	cfg := applyFlags(base, flags)
	if cfg.Addr != "127.0.0.1:1" {
		t.Errorf("Addr = %q, want 127.0.0.1:1", cfg.Addr)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.Codec != "length" {
		t.Errorf("Codec = %q, want length", cfg.Codec)
	}
	// Unchanged flags leave the file value alone.
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want :9090", cfg.MetricsAddr)
	}
}

func TestConfig_Codec(t *testing.T) {
	tests := []struct {
		name    string
		want    duplex.Codec
		wantErr bool
	}{
		{"", duplex.MarkerCodec{}, false},
		{"marker", duplex.MarkerCodec{}, false},
		{"length", duplex.LengthCodec{}, false},
		{"protobuf", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := config{Codec: tt.name}.codec()
			if (err != nil) != tt.wantErr {
				t.Fatalf("codec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if codec != tt.want {
				t.Errorf("codec() = %T, want %T", codec, tt.want)
			}
		})
	}
}

func TestConfig_Options(t *testing.T) {
	opts, err := defaultConfig().options()
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}
	if len(opts) != 4 {
		t.Errorf("len(options) = %d, want 4", len(opts))
	}

	if _, err := (config{Codec: "nope"}).options(); err == nil {
		t.Error("expected error for an unknown codec")
	}
}

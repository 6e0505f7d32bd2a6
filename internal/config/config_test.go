package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileWritesDefault(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != defaultListen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if again.Data.CSV != defaultCSV {
		t.Errorf("Data.CSV = %q, want %q", again.Data.CSV, defaultCSV)
	}
}

func TestLoad_PartialFileNormalized(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen: 0.0.0.0:8000\ndata:\n  csv: /srv/presence.csv\n  delimiter: ';'\ncache_ttl: \"0\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != "0.0.0.0:8000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Data.CSV != "/srv/presence.csv" {
		t.Errorf("Data.CSV = %q", cfg.Data.CSV)
	}
	if got := cfg.Delimiter(); got != ';' {
		t.Errorf("Delimiter() = %q, want ';'", got)
	}
	if cfg.Data.XML != defaultXML {
		t.Errorf("Data.XML = %q, want default %q", cfg.Data.XML, defaultXML)
	}
	if cfg.Locale != defaultLocale {
		t.Errorf("Locale = %q, want %q", cfg.Locale, defaultLocale)
	}
	ttl, err := cfg.CacheTTLDuration()
	if err != nil {
		t.Fatalf("CacheTTLDuration() error = %v", err)
	}
	if ttl != 0 {
		t.Errorf("CacheTTLDuration() = %v, want 0 (never expire)", ttl)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestDurations(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "default", value: defaultCacheTTL, want: 10 * time.Minute},
		{name: "zero", value: "0", want: 0},
		{name: "zero seconds", value: "0s", want: 0},
		{name: "garbage", value: "ten minutes", wantErr: true},
		{name: "negative", value: "-1m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CacheTTL = tt.value
			got, err := cfg.CacheTTLDuration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CacheTTLDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CacheTTLDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_BadDelimiter(t *testing.T) {
	t.Parallel()
	cfg := &Config{Data: DataConfig{Delimiter: "||"}}
	cfg.Normalize()
	if cfg.Data.Delimiter != defaultDelimiter {
		t.Errorf("Delimiter = %q, want %q", cfg.Data.Delimiter, defaultDelimiter)
	}
	if cfg.Snapshot.Width != defaultSnapshotWidth || cfg.Snapshot.Height != defaultSnapshotHeight {
		t.Errorf("Snapshot = %+v, want defaults", cfg.Snapshot)
	}
}

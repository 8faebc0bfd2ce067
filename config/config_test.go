package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FillsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "http:\n  addr: \":8081\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TCP.Addr != ":55556" {
		t.Fatalf("tcp addr default: %q", cfg.TCP.Addr)
	}
	if cfg.TCP.MaxLineBytes != 1024 {
		t.Fatalf("max line default: %d", cfg.TCP.MaxLineBytes)
	}
	if cfg.HTTP.Addr != ":8081" {
		t.Fatalf("http addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Logging.Service != "chat-relay" || cfg.Logging.Backend != "std" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
	if got := cfg.WriteTimeoutDuration(); got != 5*time.Second {
		t.Fatalf("write timeout default: %v", got)
	}
}

func TestLoad_WriteTimeout(t *testing.T) {
	cfg, err := Load(writeFile(t, "tcp:\n  writeTimeout: 250ms\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.WriteTimeoutDuration(); got != 250*time.Millisecond {
		t.Fatalf("write timeout: %v", got)
	}

	if _, err := Load(writeFile(t, "tcp:\n  writeTimeout: soon\n")); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing CONFIG_PATH file")
	}
}

func TestLoadConfig_MissingDefaultFallsBack(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TCP.Addr != ":55556" {
		t.Fatalf("expected defaults, got %+v", cfg.TCP)
	}
}

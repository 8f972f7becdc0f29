package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"discord": {"token": "abc", "guild_id": "123"},
		"logging": {"level": "debug", "console": true},
		"data": {"dir": "/tmp/wos"},
		"codes": {"check_interval": "10m", "auto_redeem": true}
	}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Discord.Token != "abc" || cfg.Discord.GuildID != "123" {
		t.Fatalf("discord section mismatch: %+v", cfg.Discord)
	}
	if !cfg.Codes.AutoRedeem || cfg.Codes.CheckInterval != "10m" {
		t.Fatalf("codes section mismatch: %+v", cfg.Codes)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
discord:
  token: abc
logging:
  level: info
  console: true
nick_sync:
  enabled: true
  interval: 2h
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Discord.Token != "abc" {
		t.Fatalf("token = %q", cfg.Discord.Token)
	}
	if !cfg.NickSync.Enabled || cfg.NickSync.Interval != "2h" {
		t.Fatalf("nick_sync mismatch: %+v", cfg.NickSync)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"discord": {"token": "abc"}, "bogus": 1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"discord": {"token": "abc"}}{"again": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestTokenEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"discord": {"token": "from-file"}}`)
	t.Setenv("WOSBOT_TOKEN", "from-env")

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Discord.Token != "from-env" {
		t.Fatalf("token = %q, want env override", cfg.Discord.Token)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("codes.check_interval", "", 15*time.Minute)
	if err != nil || d != 15*time.Minute {
		t.Fatalf("default: %v, %v", d, err)
	}
	d, err = ParseDurationOrDefault("codes.check_interval", "90s", 15*time.Minute)
	if err != nil || d != 90*time.Second {
		t.Fatalf("explicit: %v, %v", d, err)
	}
	if _, err := ParseDurationOrDefault("codes.check_interval", "soon", 15*time.Minute); err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if _, err := ParseDurationOrDefault("codes.check_interval", "-5m", 15*time.Minute); err == nil {
		t.Fatal("expected error for negative duration")
	}
	d, err = ParseDurationOrDefault("codes.check_interval", "0s", 15*time.Minute)
	if err != nil || d != 15*time.Minute {
		t.Fatalf("zero falls back to default: %v, %v", d, err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{}
	newCfg := &Config{}
	newCfg.Codes.AutoRedeem = true
	newCfg.Discord.Token = "secret"

	sections, _ := SummarizeConfigChange(oldCfg, newCfg)
	found := map[string]bool{}
	for _, s := range sections {
		found[s] = true
	}
	if !found["codes"] || !found["discord"] {
		t.Fatalf("sections = %v", sections)
	}
}

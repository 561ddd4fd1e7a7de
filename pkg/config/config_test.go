package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
environment: production
fxcm:
  gateway_url: ws://gateway:7777
  username: trader
  password: hunter2
  offers: ["GBP/USD", "EUR/USD"]
clickhouse:
  host: ch.internal
ingest:
  timeframes: ["D1", "H1", "m1"]
  poll_interval: 30s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", c.Server.Port)
	}
	if c.FXCM.ConnectMaxAttempts != 10 {
		t.Fatalf("expected default attempt budget, got %d", c.FXCM.ConnectMaxAttempts)
	}
	if c.FXCM.Environment != "demo" {
		t.Fatalf("expected demo environment default, got %s", c.FXCM.Environment)
	}
	if c.Ingest.PollInterval != 30*time.Second {
		t.Fatalf("expected configured poll interval, got %v", c.Ingest.PollInterval)
	}
	if len(c.Timeframes()) != 3 {
		t.Fatalf("expected 3 timeframes, got %v", c.Ingest.Timeframes)
	}
}

func TestLoadRejectsBadTimeframe(t *testing.T) {
	c := writeConfig(t, `
environment: production
fxcm:
  gateway_url: ws://gateway:7777
  username: trader
  password: hunter2
clickhouse:
  host: ch.internal
ingest:
  timeframes: ["42h"]
`)
	if _, err := Load(c); err == nil {
		t.Fatal("expected validation error for unsupported timeframe")
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	c := writeConfig(t, `
fxcm:
  gateway_url: ws://gateway:7777
clickhouse:
  host: ch.internal
`)
	if _, err := Load(c); err == nil {
		t.Fatal("expected validation error for missing credentials")
	}
}

func TestEnvOnlyCredentials(t *testing.T) {
	t.Setenv("FXCM_USERNAME", "trader")
	t.Setenv("FXCM_PASSWORD", "hunter2")

	c, err := LoadWithEnv(writeConfig(t, `
fxcm:
  gateway_url: ws://gateway:7777
clickhouse:
  host: ch.internal
`))
	if err != nil {
		t.Fatalf("credentials from environment should pass validation: %v", err)
	}
	if c.FXCM.Username != "trader" {
		t.Fatalf("expected env username, got %s", c.FXCM.Username)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FXCM_PASSWORD", "fromenv")
	t.Setenv("FXCM_OFFERS", "USD/JPY,XAU/USD")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	c, err := LoadWithEnv(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.FXCM.Password != "fromenv" {
		t.Fatalf("expected env password override, got %s", c.FXCM.Password)
	}
	if len(c.FXCM.Offers) != 2 || c.FXCM.Offers[0] != "USD/JPY" {
		t.Fatalf("expected offers override, got %v", c.FXCM.Offers)
	}
	if !c.Redis.Enabled || c.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("expected redis enabled from env, got %+v", c.Redis)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, "config.json", `{
		"alarm": {"lead_time": "30s", "timezone": "Europe/Paris"},
		"storage": {"driver": "file", "path": "./data"},
		"logging": {"level": "debug", "console": true},
		"telegram": {"enabled": true, "token": "tok", "chat_id": 42, "snooze": "9m"}
	}`)

	cfg, err := NewManager(p).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Alarm.LeadTime != "30s" || cfg.Alarm.Timezone != "Europe/Paris" {
		t.Errorf("alarm section mismatch: %+v", cfg.Alarm)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "./data" {
		t.Errorf("storage section mismatch: %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Errorf("logging section mismatch: %+v", cfg.Logging)
	}
	if cfg.Telegram == nil || !cfg.Telegram.Enabled || cfg.Telegram.ChatID != 42 || cfg.Telegram.Snooze != "9m" {
		t.Errorf("telegram section mismatch: %+v", cfg.Telegram)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, "config.yaml", `
alarm:
  lead_time: 15s
  ring_interval: 20s
  snooze_max: 2h
storage:
  driver: sqlite
  path: alarms.db
  busy_timeout: 5s
logging:
  level: info
  console: true
  file:
    enabled: true
    path: chimed.log
`)

	cfg, err := NewManager(p).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Alarm.RingInterval != "20s" || cfg.Alarm.SnoozeMax != "2h" {
		t.Errorf("alarm section mismatch: %+v", cfg.Alarm)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.BusyTimeout != "5s" {
		t.Errorf("storage section mismatch: %+v", cfg.Storage)
	}
	if !cfg.Logging.File.Enabled || cfg.Logging.File.Path != "chimed.log" {
		t.Errorf("file logging mismatch: %+v", cfg.Logging.File)
	}
	if cfg.Telegram != nil {
		t.Errorf("telegram should be nil when omitted, got %+v", cfg.Telegram)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, "config.yaml", `
alarm:
  lead_time: 15s
  typo_field: true
`)
	if _, err := NewManager(p).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, "config.json", `{"logging":{"console":true}}{"extra":1}`)
	if _, err := NewManager(p).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestLoadCommitGet(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, "config.json", `{"alarm":{"lead_time":"1m"}}`)
	m := NewManager(p)
	if m.Get() != nil {
		t.Fatal("Get before Load should be nil")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Errorf("Get returned %p, want committed %p", got, cfg)
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	cfg := &Config{}
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Errorf("received %p, want %p", got, cfg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published config")
	}

	// full buffer: newest wins
	m.publish(&Config{})
	next := &Config{}
	m.publish(next)
	if got := <-ch; got != next {
		t.Errorf("expected newest config after overflow, got %p", got)
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	m.Unsubscribe(ch) // idempotent
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationField("x", " 90s "); err != nil || d != 90*time.Second {
		t.Errorf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Errorf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "nope"); err == nil {
		t.Error("expected error for malformed duration")
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Error("expected error for negative duration")
	}
	if d, err := ParseDurationOrDefault("x", "", 15*time.Second); err != nil || d != 15*time.Second {
		t.Errorf("default: got %v, %v", d, err)
	}
}

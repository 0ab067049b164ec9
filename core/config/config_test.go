package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t", AdminID: 1},
		Webhook:  WebhookConfig{URL: "https://example.com/webhook", Path: "hook"},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeWebhook {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Webhook.Port != 8080 || cfg.Webhook.Path != "/hook" {
		t.Fatalf("webhook = %+v", cfg.Webhook)
	}
	if cfg.Webhook.Addr() != ":8080" {
		t.Fatalf("addr = %q", cfg.Webhook.Addr())
	}
}

func TestNormalizeRejects(t *testing.T) {
	poll := TelegramConfig{Token: "t", AdminID: 1, RunMode: RunModeLongpoll}
	cases := map[string]Config{
		"no token":     {Telegram: TelegramConfig{AdminID: 1, RunMode: RunModeLongpoll}},
		"no admin":     {Telegram: TelegramConfig{Token: "t", RunMode: RunModeLongpoll}},
		"http webhook": {Telegram: TelegramConfig{Token: "t", AdminID: 1}, Webhook: WebhookConfig{URL: "http://x/webhook"}},
		"bad mode":     {Telegram: TelegramConfig{Token: "t", AdminID: 1, RunMode: "carrier-pigeon"}},
		"bad exclude":  {Telegram: poll, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestPollingAliasAndExcludes(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t", AdminID: 1, RunMode: "Polling"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclude = %v", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ADMIN_ID", "99")
	t.Setenv("TELEGRAM_RUN_MODE", "longpoll")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Telegram.AdminID != 99 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegram: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

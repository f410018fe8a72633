package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("backend_url: http://file:8080/\nwebhook:\n  addr: \":4000\"\nmoderator_role_ids: [\"r1\"]\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("WEBHOOK_PORT", "3005")
	t.Setenv("MOD_ROLE_IDS", "a, b,,c")
	t.Setenv("RANDOMIZE_NAMES", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "http://file:8080" {
		t.Fatalf("expected trimmed backend url, got %q", cfg.BackendURL)
	}
	if cfg.Webhook.Addr != ":3005" {
		t.Fatalf("expected webhook addr :3005, got %q", cfg.Webhook.Addr)
	}
	if len(cfg.ModeratorRoleIDs) != 3 || cfg.ModeratorRoleIDs[2] != "c" {
		t.Fatalf("unexpected moderator roles: %v", cfg.ModeratorRoleIDs)
	}
	if !cfg.RandomizeNames {
		t.Fatalf("expected randomize names enabled")
	}
	if err := cfg.ValidateBot(); err != nil {
		t.Fatalf("expected bot config to be valid: %v", err)
	}
}

func TestValidateDashboardRequiresSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClientID = "client"
	cfg.OAuth.ClientSecret = "secret"
	cfg.OAuth.RedirectURI = "http://localhost/auth/callback"
	if err := cfg.ValidateDashboard(); err == nil {
		t.Fatalf("expected missing jwt secret error")
	}
	cfg.Dashboard.JWTSecret = "jwt"
	if err := cfg.ValidateDashboard(); err == nil || err.Error() != "SESSION_SECRET is required" {
		t.Fatalf("expected missing session secret error, got %v", err)
	}
	cfg.Dashboard.SessionSecret = "session"
	if err := cfg.ValidateDashboard(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBotRequiresToken(t *testing.T) {
	if err := DefaultConfig().ValidateBot(); err == nil {
		t.Fatalf("expected missing token error")
	}
}

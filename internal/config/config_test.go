package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REGISTRY_ADMIN_ID", "0xADMIN")
	// Clear optional overrides so host environments cannot leak into tests.
	t.Setenv("APP_PORT", "")
	t.Setenv("REGISTRY_STRICT_CUSTODY", "")
	t.Setenv("REGISTRY_EVENT_BUFFER", "")
	t.Setenv("MONGODB_DB_NAME", "")
	t.Setenv("GOOGLE_SHEET_EXPORT_ID", "")
	t.Setenv("ANCHOR_CRON_SCHEDULE", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("testdata/nonexistent.env")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if !cfg.Registry.StrictCustody {
		t.Error("strict custody should default to true")
	}
	if cfg.Registry.EventBuffer != 256 {
		t.Errorf("expected default event buffer 256, got %d", cfg.Registry.EventBuffer)
	}
	if cfg.MongoDB.DBName != "agritrace" {
		t.Errorf("expected default db name agritrace, got %s", cfg.MongoDB.DBName)
	}
	if cfg.Anchor.CronSchedule != "0 * * * *" {
		t.Errorf("unexpected anchor schedule %s", cfg.Anchor.CronSchedule)
	}
}

func TestLoadRequiresAdminID(t *testing.T) {
	t.Setenv("REGISTRY_ADMIN_ID", "")

	if _, err := Load("testdata/nonexistent.env"); err == nil {
		t.Fatal("expected error when REGISTRY_ADMIN_ID is missing")
	}
}

func TestLoadStrictCustodyOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REGISTRY_STRICT_CUSTODY", "false")

	cfg, err := Load("testdata/nonexistent.env")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.StrictCustody {
		t.Error("strict custody should be disabled")
	}
}

func TestValidateSheetsRequiresCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_SHEET_EXPORT_ID", "sheet-123")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")

	if _, err := Load("testdata/nonexistent.env"); err == nil {
		t.Fatal("expected error when sheet export lacks credentials")
	}
}

func TestLoadRejectsBadEventBuffer(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REGISTRY_EVENT_BUFFER", "not-a-number")

	if _, err := Load("testdata/nonexistent.env"); err == nil {
		t.Fatal("expected error for non-numeric event buffer")
	}
}

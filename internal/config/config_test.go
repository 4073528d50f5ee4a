package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.TrustProxyHeaders {
		t.Error("proxy header trust must default to off")
	}
	if cfg.DBPath != "rendez.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.ReminderOffset != 24*time.Hour {
		t.Errorf("reminder offset = %v", cfg.ReminderOffset)
	}
	if cfg.DispatchTimeout != 15*time.Second {
		t.Errorf("dispatch timeout = %v", cfg.DispatchTimeout)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Backup.Interval != 24*time.Hour {
		t.Errorf("backup interval = %v", cfg.Backup.Interval)
	}
	// The backup snapshot reads the same file the server writes.
	if cfg.Backup.DBPath != cfg.DBPath {
		t.Errorf("backup db path = %q, want %q", cfg.Backup.DBPath, cfg.DBPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RENDEZ_HTTP_ADDR", ":9090")
	t.Setenv("RENDEZ_HTTP_TRUST_PROXY_HEADERS", "true")
	t.Setenv("RENDEZ_REMINDER_OFFSET", "2h")
	t.Setenv("RENDEZ_MAIL_FROM", "noreply@rendez.example")
	t.Setenv("RENDEZ_BACKUP_S3_BUCKET", "rendez-backups")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if !cfg.TrustProxyHeaders {
		t.Error("proxy header trust should follow the env flag")
	}
	if cfg.ReminderOffset != 2*time.Hour {
		t.Errorf("reminder offset = %v", cfg.ReminderOffset)
	}
	if cfg.MailFrom != "noreply@rendez.example" {
		t.Errorf("mail from = %q", cfg.MailFrom)
	}
	if cfg.Backup.S3.Bucket != "rendez-backups" {
		t.Errorf("backup bucket = %q", cfg.Backup.S3.Bucket)
	}
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("RENDEZ_REMINDER_OFFSET", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

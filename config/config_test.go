package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Namespace != "app" {
		t.Errorf("Namespace = %q, want app", cfg.Namespace)
	}
	if cfg.HistoryLimit != 10 {
		t.Errorf("HistoryLimit = %d, want 10", cfg.HistoryLimit)
	}
	if !cfg.StrictDecode {
		t.Error("StrictDecode should default to true")
	}
	if cfg.DefaultSalt != "v1" {
		t.Errorf("DefaultSalt = %q, want v1", cfg.DefaultSalt)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLAGCORE_NAMESPACE", "checkout")
	t.Setenv("FLAGCORE_HISTORY_LIMIT", "5")
	t.Setenv("FLAGCORE_STRICT_DECODE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Namespace != "checkout" || cfg.HistoryLimit != 5 || cfg.StrictDecode {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("FLAGCORE_HISTORY_LIMIT", "0")
	if _, err := Load(); err == nil {
		t.Error("HISTORY_LIMIT=0 accepted")
	}
}

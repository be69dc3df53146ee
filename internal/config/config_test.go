package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 38600 || cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Memstore.Mode != "embedded" {
		t.Errorf("memstore mode = %q", cfg.Memstore.Mode)
	}
	if cfg.Namespaces.User != "user-memories" || cfg.Namespaces.Self != "assistant-self" {
		t.Errorf("namespaces = %+v", cfg.Namespaces)
	}
	if cfg.Scoring.Profile != "feedback" {
		t.Errorf("scoring profile = %q", cfg.Scoring.Profile)
	}
	if cfg.Maintenance.SimilarityThreshold != 0.85 {
		t.Errorf("similarity threshold = %v", cfg.Maintenance.SimilarityThreshold)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.ListenAddr(); got != "127.0.0.1:38600" {
		t.Errorf("ListenAddr = %q", got)
	}
}

func TestNamespaceList(t *testing.T) {
	cfg := Default()
	list := cfg.NamespaceList()
	if len(list) != 2 || list[0] != "user-memories" || list[1] != "assistant-self" {
		t.Errorf("NamespaceList = %v", list)
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	// Point HOME somewhere empty so no real config file interferes.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 38600 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MNEMOD_SERVER_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want env override 9999", cfg.Server.Port)
	}
}

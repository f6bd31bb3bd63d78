package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}

	if cfg.Collaborator.Model != "gpt-4o" {
		t.Errorf("default model wrong: %q", cfg.Collaborator.Model)
	}
	if cfg.Memory.MinChapterLength != 500 {
		t.Errorf("default min chapter length wrong: %d", cfg.Memory.MinChapterLength)
	}
	if cfg.Memory.StalenessThreshold != 0.20 {
		t.Errorf("default staleness threshold wrong: %v", cfg.Memory.StalenessThreshold)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
collaborator:
  model: gpt-4o-mini
  max_tokens: 800
memory:
  staleness_threshold: 0.35
store:
  path: /tmp/test-loom.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Collaborator.Model != "gpt-4o-mini" {
		t.Errorf("model override lost: %q", cfg.Collaborator.Model)
	}
	if cfg.Collaborator.MaxTokens != 800 {
		t.Errorf("max tokens override lost: %d", cfg.Collaborator.MaxTokens)
	}
	if cfg.Memory.StalenessThreshold != 0.35 {
		t.Errorf("threshold override lost: %v", cfg.Memory.StalenessThreshold)
	}
	// Unset fields fall back to defaults.
	if cfg.Memory.MinChapterLength != 500 {
		t.Errorf("unset field should keep default: %d", cfg.Memory.MinChapterLength)
	}
	if cfg.Store.Path != "/tmp/test-loom.db" {
		t.Errorf("store path lost: %q", cfg.Store.Path)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("collaborator: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCollabConfig(t *testing.T) {
	cfg := Default()
	cc := cfg.CollabConfig()
	if cc.Model != cfg.Collaborator.Model || cc.MaxTokens != cfg.Collaborator.MaxTokens {
		t.Errorf("conversion lost fields: %+v", cc)
	}
}

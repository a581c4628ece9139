package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCLIOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "recon.yaml")
	if err := os.WriteFile(yamlPath, []byte("threads: 5\ndomains: [\"yaml.example.com\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := Loader{CLI: CLI{
		Domains:    []string{"cli.example.com"},
		ConfigFile: yamlPath,
		Threads:    20,
	}}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threads != 20 {
		t.Fatalf("Threads = %d, want 20 (CLI should win)", cfg.Threads)
	}
	if len(cfg.Domains) != 1 || cfg.Domains[0] != "cli.example.com" {
		t.Fatalf("Domains = %v, want [cli.example.com]", cfg.Domains)
	}
}

func TestLoadFallsBackToYAMLWhenCLIFieldUnset(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "recon.yaml")
	if err := os.WriteFile(yamlPath, []byte("threads: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := Loader{CLI: CLI{ConfigFile: yamlPath}}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threads != 7 {
		t.Fatalf("Threads = %d, want 7 from YAML", cfg.Threads)
	}
}

func TestLoadEnvFallbackWhenNoDomainFlag(t *testing.T) {
	t.Setenv("RECON_TARGET", "")
	t.Setenv("RECON_DOMAIN", "env.example.com")

	loader := Loader{}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Domains) != 1 || cfg.Domains[0] != "env.example.com" {
		t.Fatalf("Domains = %v, want [env.example.com] from RECON_DOMAIN", cfg.Domains)
	}
}

func TestLoadDefaultsWhenNothingConfigured(t *testing.T) {
	loader := Loader{}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutputDir != "./recon_results" {
		t.Fatalf("OutputDir = %q, want default", cfg.OutputDir)
	}
}

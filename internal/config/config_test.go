package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetForTest clears k for the duration of the test and restores it afterwards.
func unsetForTest(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	if err := os.Unsetenv(k); err != nil {
		t.Fatalf("unsetenv %s: %v", k, err)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DB_PATH", "SEED_ON_START", "LLM_MODEL", "LLM_MAX_TOKENS", "LLM_TIMEOUT", "CORS_ORIGINS"} {
		unsetForTest(t, k)
	}

	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" || cfg.DBPath != "study.db" || !cfg.SeedOnStart {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLM.MaxTokens != 8192 || cfg.LLM.Timeout != 0 {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SEED_ON_START", "no")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("CORS_ORIGINS", " http://a , ,http://b ")

	cfg := FromEnv()
	if cfg.SeedOnStart {
		t.Fatalf("expected SeedOnStart=false")
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Fatalf("temperature = %v, want 0.2", cfg.LLM.Temperature)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Fatalf("timeout = %v, want 45s", cfg.LLM.Timeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadReadsVaultWithoutOverridingEnvironment(t *testing.T) {
	unsetForTest(t, "LLM_API_KEY")
	t.Setenv("LLM_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), "vault.env")
	if err := os.WriteFile(path, []byte("LLM_API_KEY=sk-file\nLLM_MODEL=from-file\n"), 0o600); err != nil {
		t.Fatalf("write vault: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-file" {
		t.Fatalf("api key = %q, want value from vault", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "from-env" {
		t.Fatalf("model = %q, want environment value", cfg.LLM.Model)
	}
}

func TestLoadIgnoresMissingVault(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing vault to be ignored, got %v", err)
	}
}

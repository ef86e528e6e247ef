package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"splitledger/pkg/logger"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load(logger.Discard(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTP.Port != "8080" || cfg.DB.Driver != DriverPostgres {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Auth.TokenTTL != 48*time.Hour || cfg.Groups.CacheTTL != time.Minute {
		t.Fatalf("unexpected durations %+v %+v", cfg.Auth, cfg.Groups)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, "splitledger.toml", `
env = "production"

[http]
port = "9000"
allowed_origins = ["https://app.example.com"]

[db]
driver = "sqlite"
sqlite_path = "/tmp/ledger.db"

[auth]
jwt_secret = "from-file"
token_ttl = "2h"

[groups]
cache_ttl = "30s"
`)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load(logger.Discard(), path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Env != "production" || cfg.DB.Driver != DriverSQLite || cfg.DB.SQLitePath != "/tmp/ledger.db" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.HTTP.Port != "9100" {
		t.Fatalf("expected env to override file port, got %s", cfg.HTTP.Port)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://app.example.com" {
		t.Fatalf("unexpected origins %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.Auth.TokenTTL != 2*time.Hour || cfg.Groups.CacheTTL != 30*time.Second {
		t.Fatalf("unexpected auth/groups %+v %+v", cfg.Auth, cfg.Groups)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_SKIP", "")
	if _, err := Load(logger.Discard(), ""); err == nil {
		t.Fatalf("expected missing secret to fail")
	}

	t.Setenv("AUTH_SKIP", "true")
	if _, err := Load(logger.Discard(), ""); err != nil {
		t.Fatalf("expected skip auth without secret to load, got %v", err)
	}

	t.Setenv("DB_DRIVER", "mysql")
	if _, err := Load(logger.Discard(), ""); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
}

func TestReadDotEnv(t *testing.T) {
	vars, err := readDotEnv(strings.NewReader(`
# comment
export SPLITLEDGER_TEST_A=plain
SPLITLEDGER_TEST_B="quoted value"
SPLITLEDGER_TEST_C=value # trailing
SPLITLEDGER_TEST_D='single#quoted'
`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []envVar{
		{key: "SPLITLEDGER_TEST_A", value: "plain"},
		{key: "SPLITLEDGER_TEST_B", value: "quoted value"},
		{key: "SPLITLEDGER_TEST_C", value: "value"},
		{key: "SPLITLEDGER_TEST_D", value: "single#quoted"},
	}
	if len(vars) != len(want) {
		t.Fatalf("expected %d vars, got %+v", len(want), vars)
	}
	for i := range want {
		if vars[i] != want[i] {
			t.Fatalf("var %d: expected %+v, got %+v", i, want[i], vars[i])
		}
	}

	if _, err := readDotEnv(strings.NewReader("VALID=1\nnot a pair\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func TestExportEnvKeepsExisting(t *testing.T) {
	os.Unsetenv("SPLITLEDGER_TEST_NEW")
	t.Cleanup(func() { os.Unsetenv("SPLITLEDGER_TEST_NEW") })
	t.Setenv("SPLITLEDGER_TEST_SET", "existing")

	loaded, skipped, err := exportEnv([]envVar{
		{key: "SPLITLEDGER_TEST_NEW", value: "fresh"},
		{key: "SPLITLEDGER_TEST_SET", value: "ignored"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if loaded != 1 || skipped != 1 {
		t.Fatalf("expected 1 loaded and 1 skipped, got %d and %d", loaded, skipped)
	}
	if os.Getenv("SPLITLEDGER_TEST_NEW") != "fresh" || os.Getenv("SPLITLEDGER_TEST_SET") != "existing" {
		t.Fatalf("unexpected env %q %q", os.Getenv("SPLITLEDGER_TEST_NEW"), os.Getenv("SPLITLEDGER_TEST_SET"))
	}
}

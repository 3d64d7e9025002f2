package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_EnvOverlay(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	t.Setenv("TGFORGE_TELEGRAM_API_ID", "999")
	t.Setenv("TGFORGE_FETCH_PAGE_SIZE", "25")
	t.Setenv("TGFORGE_FETCH_INCLUDE_COMMENTS", "true")
	t.Setenv("TGFORGE_OUTPUT_FORMATS", "md, xlsx")
	t.Setenv("TGFORGE_SERVER_STORE", "redis")
	t.Setenv("TGFORGE_SERVER_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path, NewViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Telegram.APIID != 999 {
		t.Errorf("APIID = %d, want 999", cfg.Telegram.APIID)
	}

	if cfg.Telegram.APIHash != "abcdef" {
		t.Errorf("APIHash = %q, want value from file", cfg.Telegram.APIHash)
	}

	if cfg.Fetch.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", cfg.Fetch.PageSize)
	}

	if !cfg.Fetch.IncludeComments {
		t.Error("IncludeComments = false, want env override true")
	}

	if want := []string{"md", "xlsx"}; !reflect.DeepEqual(cfg.Output.Formats, want) {
		t.Errorf("Formats = %v, want %v", cfg.Output.Formats, want)
	}

	if cfg.Server.Store != "redis" {
		t.Errorf("Store = %q, want redis", cfg.Server.Store)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", NewViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Fetch.PageSize != Default().Fetch.PageSize {
		t.Errorf("PageSize = %d, want default", cfg.Fetch.PageSize)
	}
}

func TestLoad_InvalidOverride(t *testing.T) {
	t.Setenv("TGFORGE_FETCH_PAGE_SIZE", "500")

	if _, err := Load("", NewViper()); err == nil {
		t.Fatal("Load() expected validation error")
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "TGFORGE_TEST_DOTENV_VALUE"

	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func newLoader(t *testing.T, args []string, env map[string]string, configDir string) *EnvLoader {
	t.Helper()

	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fset, filepath.Join(t.TempDir(), ".env"), "")
	loader.lookupEnv = func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	loader.configDir = func() (string, error) { return configDir, nil }
	if err := fset.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return loader
}

func writeEnvFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
}

func TestLoadMissingImplicitFileIsNotAnError(t *testing.T) {
	loader := newLoader(t, nil, nil, t.TempDir())
	path, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Fatalf("expected no file, got %s", path)
	}
}

func TestLoadExplicitFlagMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")
	loader := newLoader(t, []string{"--env", missing}, nil, "")
	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected error for missing explicit env file")
	}
}

func TestLoadPrefersEnvFileVar(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "override.env")
	writeEnvFile(t, override, "AIDESK_CLI_TEST_OVERRIDE=from-override\n")
	t.Setenv("AIDESK_CLI_TEST_OVERRIDE", "")

	loader := newLoader(t, nil, map[string]string{EnvFileVar: override}, "")
	path, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != override {
		t.Fatalf("loaded %s, want %s", path, override)
	}
	if got := os.Getenv("AIDESK_CLI_TEST_OVERRIDE"); got != "from-override" {
		t.Fatalf("env value = %q", got)
	}
}

func TestLoadFallsBackToUserConfigDir(t *testing.T) {
	configDir := t.TempDir()
	fallback := filepath.Join(configDir, "aidesk", "env")
	writeEnvFile(t, fallback, "AIDESK_CLI_TEST_FALLBACK=from-config\n")
	t.Setenv("AIDESK_CLI_TEST_FALLBACK", "")
	os.Unsetenv("AIDESK_CLI_TEST_FALLBACK")

	loader := newLoader(t, nil, nil, configDir)
	path, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != fallback {
		t.Fatalf("loaded %s, want %s", path, fallback)
	}
	if got := os.Getenv("AIDESK_CLI_TEST_FALLBACK"); got != "from-config" {
		t.Fatalf("env value = %q", got)
	}
}

// Package cli holds helpers shared by the aidesk subcommands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileVar names a .env file that takes precedence over --env.
const EnvFileVar = "AIDESK_ENV_FILE"

// EnvLoader loads a .env file chosen by AIDESK_ENV_FILE, the --env flag, or the
// user config directory, in that order.
type EnvLoader struct {
	fs          *flag.FlagSet
	value       *string
	defaultPath string
	// configDir resolves the per-user fallback; os.UserConfigDir by default.
	configDir func() (string, error)
	lookupEnv func(string) (string, bool)
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fset *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fset == nil {
		fset = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	return &EnvLoader{
		fs:          fset,
		value:       fset.String("env", defaultPath, description),
		defaultPath: defaultPath,
		configDir:   os.UserConfigDir,
		lookupEnv:   os.LookupEnv,
	}
}

// Load applies the first .env file it finds and returns its path. Files named
// explicitly (AIDESK_ENV_FILE or --env) override the process environment and
// must exist; implicit files only fill unset variables and may be missing.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	if custom, ok := l.lookupEnv(EnvFileVar); ok && strings.TrimSpace(custom) != "" {
		custom = strings.TrimSpace(custom)
		if err := godotenv.Overload(custom); err != nil {
			return "", fmt.Errorf("load %s=%s: %w", EnvFileVar, custom, err)
		}
		return custom, nil
	}

	requested := strings.TrimSpace(*l.value)
	if requested == "" {
		requested = l.defaultPath
	}
	if l.flagSet() {
		if err := godotenv.Overload(requested); err != nil {
			return "", fmt.Errorf("load env file %s: %w", requested, err)
		}
		return requested, nil
	}

	candidates := []string{requested}
	if dir, err := l.configDir(); err == nil && dir != "" {
		candidates = append(candidates, filepath.Join(dir, "aidesk", "env"))
	}
	for _, path := range candidates {
		err := godotenv.Load(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return "", nil
}

func (l *EnvLoader) flagSet() bool {
	set := false
	l.fs.Visit(func(f *flag.Flag) {
		if f.Name == "env" {
			set = true
		}
	})
	return set
}

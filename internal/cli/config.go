package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config defaults.
const (
	DefaultSchema   = "schema"
	DefaultDatabase = "tsq.db"
	DefaultFormat   = "text"
)

// Config is the merged CLI configuration.
type Config struct {
	Schema   string
	Database string
	Format   string
	Verbose  bool

	// File is the config file that was read, or "" when none was found.
	File string
}

// LoadConfig resolves configuration in precedence order: flags bound to v,
// TSQ_* environment variables, the config file, then defaults.
//
// When path is empty, .tsq.yaml is searched for in the working directory,
// $HOME and $HOME/.config/tsq; a missing file is not an error. .env and
// .env.local in the working directory are loaded into the environment
// first. .env never overrides variables that are already set; .env.local
// does.
func LoadConfig(fs afero.Fs, v *viper.Viper, path string) (*Config, error) {
	if err := loadDotEnv(fs, ".env", false); err != nil {
		return nil, err
	}
	if err := loadDotEnv(fs, ".env.local", true); err != nil {
		return nil, err
	}

	v.SetFs(fs)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}
		v.SetConfigName(".tsq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "tsq"))
	}

	v.SetEnvPrefix("TSQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("schema", DefaultSchema)
	v.SetDefault("db", DefaultDatabase)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("verbose", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		Schema:   v.GetString("schema"),
		Database: v.GetString("db"),
		Format:   v.GetString("format"),
		Verbose:  v.GetBool("verbose"),
		File:     v.ConfigFileUsed(),
	}, nil
}

// loadDotEnv reads a dotenv file from fs into the process environment.
// A missing file is skipped.
func loadDotEnv(fs afero.Fs, name string, override bool) error {
	data, err := afero.ReadFile(fs, name)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	env, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	for key, value := range env {
		if _, set := os.LookupEnv(key); set && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s from %s: %w", key, name, err)
		}
	}
	return nil
}

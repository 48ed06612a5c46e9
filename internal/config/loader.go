package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file over the defaults and expands environment
// variables. A missing file is an error unless optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return cfg, nil
}

// LoadWithOverrides loads the file, then applies environment variables and
// any flags set on fs. fs may be nil.
func LoadWithOverrides(path string, optional bool, fs *pflag.FlagSet) (*Config, error) {
	cfg, err := Load(path, optional)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if fs != nil {
		if err := cfg.ApplyFlags(fs); err != nil {
			return nil, err
		}
	}
	cfg.applyDerived()
	return cfg, nil
}

// LoadAndValidate loads config, applies overrides, and validates.
func LoadAndValidate(path string, optional bool, fs *pflag.FlagSet) (*Config, error) {
	cfg, err := LoadWithOverrides(path, optional, fs)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

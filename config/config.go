// Package config resolves the run settings from, in increasing priority,
// built-in defaults, an optional YAML file and explicitly set flags.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"ddsconv/contracts"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "DDSCONV_CONFIG"
	EnvLogLevel   = "DDSCONV_LOG_LEVEL"
)

type InputFlags = contracts.InputFlags

// Loader reads the optional .env and YAML files.
type Loader struct {
	dotEnvPath string
}

// NewLoader creates a loader that reads ./.env when it exists.
func NewLoader() *Loader {
	return &Loader{dotEnvPath: ".env"}
}

// WithDotEnv changes the .env file to load. An empty path disables it.
func (l *Loader) WithDotEnv(path string) *Loader {
	l.dotEnvPath = path
	return l
}

// Result captures the loaded settings and the config file they came from.
type Result struct {
	Flags InputFlags
	Path  string
}

// Load returns the defaults overlaid with the YAML file at configPath, or at
// $DDSCONV_CONFIG when configPath is empty. Variables from the .env file
// never replace ones already set in the environment.
func (l *Loader) Load(configPath string) (*Result, error) {
	if l.dotEnvPath != "" {
		if err := godotenv.Load(l.dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, contracts.WrapPath(contracts.KindValidation, "load .env", l.dotEnvPath, err)
		}
	}

	result := &Result{Flags: contracts.DefaultInputFlags(), Path: configPath}
	if result.Path == "" {
		result.Path = os.Getenv(EnvConfigPath)
	}

	if result.Path != "" {
		data, err := os.ReadFile(result.Path)
		if err != nil {
			return nil, contracts.WrapPath(contracts.KindValidation, "read config", result.Path, err)
		}
		if err := decode(data, &result.Flags); err != nil {
			return nil, contracts.WrapPath(contracts.KindValidation, "parse config", result.Path, err)
		}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		result.Flags.LogLevel = level
	}
	return result, nil
}

// decode rejects keys InputFlags does not know. An empty file is valid.
func decode(data []byte, flags *InputFlags) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(flags); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Merge copies into base every field of cli whose flag name is in set.
func Merge(base, cli InputFlags, set map[string]bool) InputFlags {
	for name, apply := range setters {
		if set[name] {
			apply(&base, cli)
		}
	}
	return base
}

var setters = map[string]func(dst *InputFlags, src InputFlags){
	"mode":            func(d *InputFlags, s InputFlags) { d.Mode = s.Mode },
	"input":           func(d *InputFlags, s InputFlags) { d.InputDir = s.InputDir },
	"output":          func(d *InputFlags, s InputFlags) { d.OutputDir = s.OutputDir },
	"keep-alpha":      func(d *InputFlags, s InputFlags) { d.KeepAlpha = s.KeepAlpha },
	"resize":          func(d *InputFlags, s InputFlags) { d.Resize = s.Resize },
	"brightness":      func(d *InputFlags, s InputFlags) { d.Brightness = s.Brightness },
	"contrast":        func(d *InputFlags, s InputFlags) { d.Contrast = s.Contrast },
	"saturation":      func(d *InputFlags, s InputFlags) { d.Saturation = s.Saturation },
	"sharpen":         func(d *InputFlags, s InputFlags) { d.Sharpen = s.Sharpen },
	"blur":            func(d *InputFlags, s InputFlags) { d.Blur = s.Blur },
	"png-compression": func(d *InputFlags, s InputFlags) { d.PNGCompression = s.PNGCompression },
	"workers":         func(d *InputFlags, s InputFlags) { d.Workers = s.Workers },
	"contact-sheet":   func(d *InputFlags, s InputFlags) { d.ContactSheet = s.ContactSheet },
	"log-level":       func(d *InputFlags, s InputFlags) { d.LogLevel = s.LogLevel },
	"log-json":        func(d *InputFlags, s InputFlags) { d.LogJSON = s.LogJSON },
}

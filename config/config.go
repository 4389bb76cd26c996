// Copyright 2022~2024 wangqi. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the client settings read from the TOML file and the
// environment. Command line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	dirName  = "domterm"
	fileName = "client.toml"

	EnvTTY          = "DOMTERM_TTY"
	EnvReplyTimeout = "DOMTERM_REPLY_TIMEOUT"

	defaultBufferSize = 2048
	minBufferSize     = 2
)

// Duration is a time.Duration written as "300ms" or "2s" in the file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	TTY          string   `toml:"tty"`
	ReplyTimeout Duration `toml:"reply-timeout"` // zero waits forever
	BufferSize   int      `toml:"buffer-size"`
	Verbose      int      `toml:"verbose"`
	LogFile      string   `toml:"log-file"`
	Force        bool     `toml:"force"` // skip the DomTerm check
}

func Default() *Config {
	return &Config{
		TTY:        "/dev/tty",
		BufferSize: defaultBufferSize,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/domterm/client.toml, or
// ~/.config/domterm/client.toml when XDG_CONFIG_HOME is not set.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, dirName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", dirName, fileName), nil
}

// Load reads the file at path over the defaults. A missing file is not an
// error. Unknown keys are.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnvOverrides lets the environment replace file values.
func (c *Config) ApplyEnvOverrides(getenv func(string) string) error {
	if tty := getenv(EnvTTY); tty != "" {
		c.TTY = tty
	}
	if v := getenv(EnvReplyTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReplyTimeout, err)
		}
		c.ReplyTimeout.Duration = d
	}
	return nil
}

// ValidationError is one bad setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() error {
	var errs []error

	if c.ReplyTimeout.Duration < 0 {
		errs = append(errs, ValidationError{"reply-timeout", fmt.Sprintf("negative duration %s", c.ReplyTimeout)})
	}
	if c.BufferSize < minBufferSize {
		errs = append(errs, ValidationError{"buffer-size", fmt.Sprintf("%d is less than %d", c.BufferSize, minBufferSize)})
	}
	if c.Verbose < 0 {
		errs = append(errs, ValidationError{"verbose", fmt.Sprintf("negative level %d", c.Verbose)})
	}
	return errors.Join(errs...)
}

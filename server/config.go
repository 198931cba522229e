// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package server implements the server instance lifecycle state machine:
// Unconfigured through Stopped, the ordered start/stop hook sequence, and
// the worker groups and services a running server hosts.
package server

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/skylakelib/skylake/worker"
)

// Config collects the worker groups a server.Instance will host, plus
// process-level settings loadable from a TOML file.
type Config struct {
	Name string `toml:"name"`

	// WillCaptureCallingThread, if any configured group also sets it,
	// causes Instance.Start to run that group's master worker on the
	// calling goroutine and block until shutdown.
	groups []worker.GroupConfig
}

// NewConfig constructs an empty Config for a named server instance.
func NewConfig(name string) *Config {
	return &Config{Name: name}
}

// AddGroup registers a worker group to be started as part of this
// instance's start sequence, in registration order.
func (c *Config) AddGroup(g worker.GroupConfig) {
	c.groups = append(c.groups, g)
}

// Groups returns the registered worker groups, in registration order.
func (c *Config) Groups() []worker.GroupConfig {
	return c.groups
}

// fileConfig is the TOML-decodable subset of Config: only the scalar
// process-level fields, since worker.GroupConfig carries function-typed
// fields (hooks, tick handlers) that have no serializable representation
// and must be attached via AddGroup in code after loading.
type fileConfig struct {
	Name string `toml:"name"`
}

// LoadConfig reads a TOML file at path and returns a Config with its
// scalar fields populated. Callers still add worker groups via AddGroup,
// since group hooks and tick callbacks are Go closures with no TOML
// representation.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: read config: %w", err)
	}
	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return nil, fmt.Errorf("server: decode config: %w", err)
	}
	return &Config{Name: fc.Name}, nil
}

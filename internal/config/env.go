package config

import (
	"fmt"

	"github.com/xyproto/env/v2"
)

// Environment variables that override the loaded configuration.
const (
	EnvConsistencyCheck = "LOOPSCHED_CONSISTENCY_CHECK"
	EnvStatic           = "LOOPSCHED_STATIC"
	EnvLogLevel         = "LOOPSCHED_LOG_LEVEL"
	EnvDatabase         = "LOOPSCHED_DB"
	EnvMaxBlocks        = "LOOPSCHED_MAX_BLOCKS"
	EnvTrace            = "LOOPSCHED_TRACE"
)

// applyEnv reloads the environment first; the env package caches it on
// first use.
func (c *Config) applyEnv() error {
	env.Load()
	if env.Has(EnvConsistencyCheck) {
		c.ConsistencyCheck = env.Bool(EnvConsistencyCheck)
	}
	if env.Has(EnvStatic) {
		switch s := env.Str(EnvStatic); s {
		case "greedy", "balanced":
			c.Static = s
		default:
			return &LoadError{Code: ErrCodeEnv, Message: fmt.Sprintf("%s=%q: must be greedy or balanced", EnvStatic, s)}
		}
	}
	if env.Has(EnvLogLevel) {
		switch s := env.Str(EnvLogLevel); s {
		case "debug", "info", "warn", "error":
			c.LogLevel = s
		default:
			return &LoadError{Code: ErrCodeEnv, Message: fmt.Sprintf("%s=%q: unknown level", EnvLogLevel, s)}
		}
	}
	c.Database = env.Str(EnvDatabase, c.Database)
	if env.Has(EnvMaxBlocks) {
		n := env.Int(EnvMaxBlocks, 0)
		if n <= 0 {
			return &LoadError{Code: ErrCodeEnv, Message: fmt.Sprintf("%s must be a positive integer", EnvMaxBlocks)}
		}
		c.MaxBlocks = n
	}
	if env.Has(EnvTrace) {
		c.Trace = env.Bool(EnvTrace)
	}
	return nil
}

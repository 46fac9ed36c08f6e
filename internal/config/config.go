// Package config loads runtime configuration for loopsched.
//
// Configuration is a CUE value checked against the embedded #Config
// schema. A user file (CUE or JSON) or a directory of CUE files is unified
// with the schema, and LOOPSCHED_* environment variables override the
// result.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/loopsched/internal/sched"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	ConsistencyCheck bool   `json:"consistency_check"`
	Static           string `json:"static"`
	LogLevel         string `json:"log_level"`
	Database         string `json:"database"`
	MaxBlocks        int    `json:"max_blocks"`
	Trace            bool   `json:"trace"`
}

// LoadError reports a configuration that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for LoadError.
const (
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeInvalid     = "E201" // Value does not satisfy #Config
	ErrCodeEnv         = "E202" // Bad environment override
)

// Default returns the schema defaults with environment overrides applied.
func Default() (*Config, error) {
	return Load("")
}

// Load reads the configuration at path, which may be a .cue file, a .json
// file, or a directory of CUE files. An empty path yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building schema: %v", err)}
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	user := ctx.CompileString("{}")
	if path != "" {
		v, err := loadUser(ctx, path)
		if err != nil {
			return nil, err
		}
		user = v
	}

	merged := def.Unify(user)
	if err := merged.Validate(); err != nil {
		return nil, invalid(err)
	}
	var cfg Config
	if err := merged.Decode(&cfg); err != nil {
		return nil, invalid(err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadUser(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return cue.Value{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config not found: %s", path)}
	}
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config: %v", err)}
	}

	if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building %s: %v", path, err)}
		}
		return v, nil
	}

	cfg := &load.Config{}
	args := []string{path}
	if info.IsDir() {
		cfg.Dir = path
		args = []string{"."}
	}
	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return v, nil
}

func invalid(err error) *LoadError {
	le := &LoadError{Code: ErrCodeInvalid, Message: err.Error()}
	var cerr interface{ Position() token.Pos }
	if errors.As(err, &cerr) {
		le.Pos = cerr.Position()
	}
	return le
}

// StaticKind returns the configured flavor for plain "static" loops.
func (c *Config) StaticKind() sched.Kind {
	if c.Static == "balanced" {
		return sched.Balanced
	}
	return sched.Greedy
}

// ResolveKind parses a schedule kind name, mapping "static" to the
// configured flavor.
func (c *Config) ResolveKind(s string) (sched.Kind, error) {
	if strings.EqualFold(strings.TrimSpace(s), "static") {
		return c.StaticKind(), nil
	}
	return sched.ParseKind(s)
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger returns a text logger on w at the configured level, or at debug
// level when verbose is set.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level := c.Level()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Runtime returns the solver runtime for this configuration. The slog
// observer is attached only when tracing is on.
func (c *Config) Runtime(logger *slog.Logger, sink sched.MetadataSink) *sched.Runtime {
	rt := &sched.Runtime{Check: c.ConsistencyCheck, Metadata: sink}
	if c.Trace {
		rt.Observer = sched.SlogObserver{Logger: logger}
	}
	return rt
}

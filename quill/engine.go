package quill

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/oarkflow/log"
)

// Config controls execution bounds and enforcement modes.
type Config struct {
	// RecursionLimit bounds the script call depth; exceeding it fails the run
	// with a StackOverflow error.
	RecursionLimit int
	// StepQuota bounds executed statements and loop iterations. Zero means
	// unlimited.
	StepQuota int
	// StrictMode turns assignments to undeclared names into ReferenceErrors,
	// binds `this` to undefined in bare calls and makes writes to frozen
	// objects throw, as a "use strict" directive does per program.
	StrictMode bool
	// CacheSize is the number of parsed programs kept by Compile. Negative
	// disables the cache.
	CacheSize int
	Logger    *log.Logger
	// LogSink receives console output. The default writes through Logger.
	LogSink LogSink
	Now     func() time.Time
	Random  func() float64
}

// LogSink receives console.* calls with the level name and rendered text.
type LogSink func(level, message string)

// Engine compiles and runs scripts. It is safe for concurrent use; each run
// gets its own Context unless the caller shares one.
type Engine struct {
	config Config
	cache  *ristretto.Cache
	logger *log.Logger
}

// NewEngine constructs an Engine with defaults applied.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = 500
	}
	if cfg.StepQuota < 0 {
		return nil, fmt.Errorf("quill: step quota must not be negative")
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = &log.DefaultLogger
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Random == nil {
		cfg.Random = rand.Float64
	}

	engine := &Engine{config: cfg, logger: cfg.Logger}
	if cfg.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: int64(cfg.CacheSize * 10),
			MaxCost:     int64(cfg.CacheSize),
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("quill: program cache: %w", err)
		}
		engine.cache = cache
	}
	return engine, nil
}

// MustNewEngine constructs an Engine or panics if the config is invalid.
func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.config }

// Script is a parsed program ready to run in any Context.
type Script struct {
	engine  *Engine
	program *Program
}

func (s *Script) Program() *Program { return s.program }

func (s *Script) Source() string { return s.program.source }

// Compile parses source, reusing a cached program for identical text.
// Programs are never mutated after parsing, so cached entries are shared
// between concurrent runs.
func (e *Engine) Compile(source string) (*Script, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(source); ok {
			return &Script{engine: e, program: cached.(*Program)}, nil
		}
	}
	program, err := Parse(source)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(source, program, 1)
		e.logger.Debug().Int("bytes", len(source)).Int("statements", len(program.Statements)).Msg("quill: compiled program")
	}
	return &Script{engine: e, program: program}, nil
}

// Run compiles source and runs it in a fresh Context seeded with globals.
func (e *Engine) Run(ctx context.Context, source string, globals map[string]Value) (Value, error) {
	script, err := e.Compile(source)
	if err != nil {
		return Value{}, err
	}
	return e.NewContext(globals).Run(ctx, script)
}

// Close releases the program cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// ConfigSummary provides a human-readable description of the engine limits.
func (e *Engine) ConfigSummary() string {
	return fmt.Sprintf("recursion=%d steps=%d strict=%t cache=%d", e.config.RecursionLimit, e.config.StepQuota, e.config.StrictMode, e.config.CacheSize)
}

package executor

import (
	"log/slog"
	"time"

	"github.com/shundroid/three-blockly/hostfunc"
)

// DefaultLoopLimit is the loop guard limit used when none is set.
const DefaultLoopLimit = 1_000_000

// Option configures execution behavior.
type Option func(*runConfig)

type runConfig struct {
	timeout   time.Duration
	loopLimit int
	funcs     map[string]hostfunc.Func
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout:   30 * time.Second,
		loopLimit: DefaultLoopLimit,
	}
}

// WithTimeout sets the maximum execution time. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithLoopLimit sets how many loop guard checkpoints a run may pass.
// Zero disables the guard.
func WithLoopLimit(n int) Option {
	return func(c *runConfig) {
		c.loopLimit = n
	}
}

// WithHostFunc registers fn for this run only, shadowing any function of
// the same name in the executor's registry.
func WithHostFunc(name string, fn hostfunc.Func) Option {
	return func(c *runConfig) {
		if c.funcs == nil {
			c.funcs = make(map[string]hostfunc.Func)
		}
		c.funcs[name] = fn
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Language // Languages to precompile at startup
	memoryLimitPages uint32     // Max memory pages (each page = 64KB), 0 = default (4GB)
	logger           *slog.Logger
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		logger: slog.Default(),
	}
}

// WithDiskCache enables persistent compilation cache for faster CLI startup.
// Optionally provide a custom directory; otherwise uses ~/.cache/blockcode or
// XDG_CACHE_HOME/blockcode.
//
//	executor.New(registry, executor.WithDiskCache())            // default dir
//	executor.New(registry, executor.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles the specified languages at Executor creation time.
// This moves the compilation cost to startup rather than first execution.
func WithPrecompile(langs ...Language) ExecutorOption {
	return func(c *executorConfig) {
		c.precompile = langs
	}
}

// WithMemoryLimit sets the maximum memory available to WASM modules.
// Each page is 64KB. Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithLogger sets the logger used for compile and run events.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(c *executorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// MemoryLimitMB converts megabytes to pages.
func MemoryLimitMB(mb uint32) uint32 {
	return mb * 16
}

// Memory limit constants for convenience.
const (
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)

package docker

import (
	"time"

	"arbiter/internal/domain/execution"
)

// Config describes how to create a Docker-backed sandbox engine.
type Config struct {
	Languages     map[execution.Language]LanguageConfig
	DefaultLimits execution.RunLimits

	// GracePeriod is the backstop added to a job's time limit before the
	// container itself is forcibly removed.
	GracePeriod time.Duration
	// OutputLimitBytes caps each captured stream (stdout, stderr).
	OutputLimitBytes int64
	// CompileTimeout bounds the compile phase independently of the job's
	// run-time limit.
	CompileTimeout time.Duration
	// CompileMemoryBytes is the memory ceiling for compile containers;
	// compilers routinely need more than the submitted program.
	CompileMemoryBytes int64
	// NetworkEnabled leaves sandbox networking on. Default is off: the
	// container joins no network and outbound connections fail.
	NetworkEnabled bool
}

// LanguageConfig specifies container settings for a single language.
type LanguageConfig struct {
	// Image runs the compile phase (and the run phase unless RunImage is set).
	Image string
	// RunImage, when set, runs the run phase; lets compiled languages
	// execute in a slimmer image than they build in.
	RunImage string
	Workdir  string
}

const (
	defaultWorkdir            = "/workspace"
	defaultGracePeriod        = 2 * time.Second
	defaultOutputLimitBytes   = 64 * 1024
	defaultCompileTimeout     = 30 * time.Second
	defaultCompileMemoryBytes = 512 * 1024 * 1024
	defaultPidsLimit          = 64
	defaultScratchSize        = "rw,noexec,nosuid,size=67108864"
)

func (c *Config) applyDefaults() {
	if c.GracePeriod <= 0 {
		c.GracePeriod = defaultGracePeriod
	}
	if c.OutputLimitBytes <= 0 {
		c.OutputLimitBytes = defaultOutputLimitBytes
	}
	if c.CompileTimeout <= 0 {
		c.CompileTimeout = defaultCompileTimeout
	}
	if c.CompileMemoryBytes <= 0 {
		c.CompileMemoryBytes = defaultCompileMemoryBytes
	}
	if c.DefaultLimits.PidsLimit <= 0 {
		c.DefaultLimits.PidsLimit = defaultPidsLimit
	}
}

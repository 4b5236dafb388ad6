package runner

import (
	"io"
	"os"

	"github.com/infracollect/untar/internal/engine"
	"github.com/infracollect/untar/internal/sources"
	"github.com/infracollect/untar/internal/worker"
	"github.com/infracollect/untar/pkg/untar"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// OutputName is the injector name of the writer reports go to.
const OutputName = "output"

// ContainerConfig holds the process-level values a run depends on. Zero
// values fall back to the operating system: OS filesystem, os.Stdin and
// os.Stdout.
type ContainerConfig struct {
	Fs     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer

	// WorkerProgram runs process workers that do not name a program.
	WorkerProgram []string
}

// BuildContainer creates a new DI container with all dependencies registered.
// Dependencies are lazily initialized when first requested.
func BuildContainer(logger *zap.Logger, cfg ContainerConfig) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, BuildRegistry())

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	do.ProvideValue(injector, fs)

	stdin := cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	do.ProvideNamedValue(injector, sources.StdinName, stdin)

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	do.ProvideNamedValue(injector, OutputName, stdout)

	if len(cfg.WorkerProgram) > 0 {
		do.ProvideNamedValue(injector, worker.DefaultProgramName, cfg.WorkerProgram)
	}

	// Object URLs are shared by every extraction of the process.
	do.Provide(injector, func(do.Injector) (*untar.URLRegistry, error) {
		return untar.NewURLRegistry(), nil
	})

	return injector
}

// BuildRegistry creates a new registry with all sources and workers registered.
func BuildRegistry() *engine.Registry {
	registry := engine.NewRegistry()

	sources.Register(registry)
	worker.Register(registry)

	return registry
}

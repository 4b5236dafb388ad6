package worker

import (
	"context"
	"fmt"

	"github.com/go-logr/zapr"
	v1 "github.com/infracollect/untar/apis/v1"
	"github.com/infracollect/untar/internal/engine"
	"github.com/infracollect/untar/internal/tarworker"
	"github.com/infracollect/untar/pkg/protocol"
	"github.com/infracollect/untar/pkg/untar"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// DefaultProgramName is the injector name of the []string program used by
// process workers that do not configure one.
const DefaultProgramName = "worker_program"

// Register registers the in-process and process worker factories. Both
// resolve a *zap.Logger from the injector.
func Register(r *engine.Registry) {
	r.RegisterWorker(InProcessKind, engine.NewWorkerFactory(InProcessKind, inProcessFactory))
	r.RegisterWorker(ProcessKind, engine.NewWorkerFactory(ProcessKind, processFactory))
}

// TarHandler runs the tar decoder on the worker goroutine.
func TarHandler(logger *zap.Logger) Handler {
	log := zapr.NewLogger(logger)
	return func(ctx context.Context, data []byte, emit func(protocol.Message) error) error {
		return tarworker.Extract(ctx, log, data, emit)
	}
}

func inProcessFactory(_ context.Context, i do.Injector, _ *v1.InProcessWorker) (untar.Spawner, error) {
	logger, err := do.Invoke[*zap.Logger](i)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logger: %w", err)
	}
	logger = logger.Named(InProcessKind)
	return NewInProcessSpawner(logger, TarHandler(logger.Named("tar"))), nil
}

func processFactory(_ context.Context, i do.Injector, spec *v1.ProcessWorker) (untar.Spawner, error) {
	logger, err := do.Invoke[*zap.Logger](i)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logger: %w", err)
	}

	program := spec.Program
	if len(program) == 0 {
		program, err = do.InvokeNamed[[]string](i, DefaultProgramName)
		if err != nil {
			return nil, fmt.Errorf("no worker program configured: %w", err)
		}
	}

	return NewProcessSpawner(logger.Named(ProcessKind), ProcessConfig{
		Program:    program,
		Env:        spec.Env,
		WorkingDir: spec.WorkingDir,
	})
}

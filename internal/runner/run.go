package runner

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	v1 "github.com/infracollect/untar/apis/v1"
	"github.com/infracollect/untar/internal/engine"
	"github.com/infracollect/untar/internal/filter"
	"github.com/infracollect/untar/pkg/untar"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

type Runner struct {
	logger    *zap.Logger
	job       v1.ExtractJob
	source    engine.Source
	extractor *untar.Extractor
	filter    *filter.Filter
	reporter  Reporter
	timeout   time.Duration

	mu        sync.Mutex
	matched   int
	reportErr error
}

// New builds the source, worker and reporter of job from the injector. The
// job must already be validated and its templates expanded.
func New(ctx context.Context, i do.Injector, job v1.ExtractJob) (*Runner, error) {
	logger, err := do.Invoke[*zap.Logger](i)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logger: %w", err)
	}
	registry, err := do.Invoke[*engine.Registry](i)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve registry: %w", err)
	}

	logger = logger.With(zap.String("job_name", job.Metadata.Name))
	logger.Info("creating runner")

	sourceSpec, err := ResolveSourceSpec(job.Spec.Source)
	if err != nil {
		return nil, err
	}
	source, err := registry.CreateSource(ctx, i, sourceSpec.Kind, sourceSpec.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source: %w", sourceSpec.Kind, err)
	}

	workerSpec, err := ResolveWorkerSpec(job.Spec.Worker)
	if err != nil {
		return nil, err
	}
	spawner, err := registry.CreateWorker(ctx, i, workerSpec.Kind, workerSpec.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s worker: %w", workerSpec.Kind, err)
	}

	urls, err := do.Invoke[*untar.URLRegistry](i)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve object url registry: %w", err)
	}

	r := &Runner{
		logger:    logger,
		job:       job,
		source:    source,
		extractor: untar.New(logger.Named("extractor"), spawner, untar.WithObjectURLs(urls)),
	}

	if job.Spec.Filter != "" {
		r.filter, err = filter.Compile(job.Spec.Filter)
		if err != nil {
			return nil, err
		}
	}

	if job.Spec.Timeout != nil {
		r.timeout = time.Duration(*job.Spec.Timeout) * time.Second
	}

	out, err := do.InvokeNamed[io.Writer](i, OutputName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output: %w", err)
	}
	var show string
	var content bool
	if job.Spec.Output != nil {
		show = job.Spec.Output.Show
		content = job.Spec.Output.Content
	}
	r.reporter, err = NewReporter(show, out, content)
	if err != nil {
		return nil, err
	}

	logger.Debug("runner created",
		zap.String("source", source.Name()),
		zap.String("worker", workerSpec.Kind),
		zap.Stringer("filter", r.filter),
	)
	return r, nil
}

// Run fetches the archive, extracts it and reports every matching entry as
// soon as the worker produces it.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	data, err := r.source.Fetch(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch archive from %s: %w", r.source.Name(), err)
	}
	r.logger.Debug("archive fetched", zap.String("source", r.source.Name()), zap.Int("bytes", len(data)))

	summary := Summary{Source: r.source.Name(), Bytes: int64(len(data))}

	extraction, err := r.extractor.Extract(ctx, untar.NewBuffer(data), r.report)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to start extraction: %w", err)
	}

	entries, err := extraction.Await(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to extract archive: %w", err)
	}

	r.mu.Lock()
	summary.Entries = len(entries)
	summary.Matched = r.matched
	reportErr := r.reportErr
	r.mu.Unlock()

	if reportErr != nil {
		return Summary{}, fmt.Errorf("failed to report entries: %w", reportErr)
	}

	summary.Duration = time.Since(start)
	if err := r.reporter.Finish(summary); err != nil {
		return Summary{}, fmt.Errorf("failed to report summary: %w", err)
	}

	r.logger.Info("extraction finished",
		zap.Int("entries", summary.Entries),
		zap.Int("matched", summary.Matched),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (r *Runner) report(entry *untar.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reportErr != nil {
		return
	}

	if r.filter != nil {
		ok, err := r.filter.Match(entry)
		if err != nil {
			r.reportErr = err
			return
		}
		if !ok {
			return
		}
	}

	r.matched++
	if err := r.reporter.Report(entry); err != nil {
		r.reportErr = fmt.Errorf("entry %s: %w", entry.Name(), err)
	}
}

// Package untar extracts archives asynchronously through an isolated worker.
//
// Extract hands the archive bytes to a freshly spawned worker and returns a
// future right away. Each entry the worker produces is decorated and
// reported as progress; the future then settles with every entry in arrival
// order, or with the first error.
package untar

import (
	"context"
	"errors"
	"fmt"

	"github.com/infracollect/untar/pkg/future"
	"github.com/infracollect/untar/pkg/protocol"
	"go.uber.org/zap"
)

// Extraction is the result of Extract: progress carries single entries, the
// settled value carries all of them in arrival order.
type Extraction = future.Future[*Entry, []*Entry]

var errWorkerStopped = errors.New("worker stopped without completing")

type Extractor struct {
	logger      *zap.Logger
	spawner     Spawner
	diagnostics DiagnosticSink
	urls        ObjectURLs
}

type Option func(*Extractor)

// WithDiagnostics sets where worker log lines go. By default they are written
// to the extractor's logger.
func WithDiagnostics(sink DiagnosticSink) Option {
	return func(e *Extractor) {
		e.diagnostics = sink
	}
}

// WithObjectURLs sets the registry used by Entry.BlobURL. By default each
// Extractor owns a private URLRegistry.
func WithObjectURLs(urls ObjectURLs) Option {
	return func(e *Extractor) {
		e.urls = urls
	}
}

// New creates an Extractor that runs every extraction on its own worker from
// spawner. A nil spawner makes every Extract call fail with
// ErrEnvironmentUnsupported.
func New(logger *zap.Logger, spawner Spawner, opts ...Option) *Extractor {
	e := &Extractor{
		logger:  logger,
		spawner: spawner,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.diagnostics == nil {
		e.diagnostics = NewZapDiagnostics(logger.Named("worker"))
	}
	if e.urls == nil {
		e.urls = NewURLRegistry()
	}
	return e
}

// Extract starts extracting buf and returns without waiting for the worker.
//
// The contents of buf are transferred: once Extract returns successfully,
// buf is moved and must not be used again. Invalid input and a missing
// worker capability are reported here; every later failure rejects the
// returned Extraction. Cancelling ctx terminates the worker and rejects the
// Extraction with the context error.
//
// Entries may be reported before Extract returns to the caller, so progress
// observers that must see every entry are passed here rather than registered
// later through Observe.
func (e *Extractor) Extract(ctx context.Context, buf *Buffer, onProgress ...func(*Entry)) (*Extraction, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: buffer is nil", ErrInvalidArgument)
	}
	if buf.Moved() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrBufferMoved)
	}
	if e.spawner == nil {
		return nil, ErrEnvironmentUnsupported
	}
	if err := e.spawner.Available(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentUnsupported, err)
	}

	data, err := buf.Transfer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	extraction, resolver := future.New[*Entry, []*Entry]()
	for _, observe := range onProgress {
		extraction.Observe(observe, nil)
	}
	go e.run(ctx, data, resolver)
	return extraction, nil
}

func (e *Extractor) run(ctx context.Context, data []byte, resolver *future.Resolver[*Entry, []*Entry]) {
	logger := e.logger.With(zap.Int("archive_bytes", len(data)))

	worker, err := e.spawner.Spawn(ctx)
	if err != nil {
		logger.Debug("failed to spawn worker", zap.Error(err))
		resolver.Reject(&WorkerFaultError{Err: err})
		return
	}

	// data belongs to the worker from here on.
	logger.Debug("sending archive to worker")
	worker.Post(protocol.ExtractRequest{Buffer: data})

	entries := []*Entry{}
	for {
		select {
		case <-ctx.Done():
			e.terminate(logger, worker)
			resolver.Reject(fmt.Errorf("extraction cancelled: %w", ctx.Err()))
			return

		case event, ok := <-worker.Events():
			if !ok {
				resolver.Reject(&WorkerFaultError{Err: errWorkerStopped})
				return
			}
			if event.Fault != nil {
				logger.Debug("worker fault", zap.Error(event.Fault))
				resolver.Reject(&WorkerFaultError{Err: event.Fault})
				return
			}

			switch msg := event.Message.(type) {
			case protocol.Log:
				e.diagnostics.Log(msg.Level, msg.Text)

			case protocol.Extracted:
				entry := NewEntry(msg.Entry, e.urls)
				entries = append(entries, entry)
				resolver.Progress(entry)

			case protocol.Complete:
				e.terminate(logger, worker)
				logger.Debug("extraction complete", zap.Int("entries", len(entries)))
				resolver.Fulfill(entries)
				return

			case protocol.Failure:
				e.terminate(logger, worker)
				resolver.Reject(&ExtractionError{Message: msg.Message})
				return

			case protocol.Unknown:
				e.terminate(logger, worker)
				resolver.Reject(&ProtocolViolationError{Tag: msg.Type, Reason: msg.Reason})
				return

			default:
				// An echoed request or a nil message.
				tag := ""
				if msg != nil {
					tag = string(msg.Tag())
				}
				e.terminate(logger, worker)
				resolver.Reject(&ProtocolViolationError{Tag: tag, Reason: fmt.Sprintf("unexpected %T", msg)})
				return
			}
		}
	}
}

func (e *Extractor) terminate(logger *zap.Logger, worker Worker) {
	if err := worker.Terminate(); err != nil {
		logger.Warn("failed to terminate worker", zap.Error(err))
	}
}

// Package worker provides the host capabilities that run extraction workers:
// goroutines inside the current process and separate child processes.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/infracollect/untar/pkg/protocol"
	"github.com/infracollect/untar/pkg/untar"
	"go.uber.org/zap"
)

const InProcessKind = "inprocess"

// Handler decodes data and reports the result through emit. It must end the
// exchange with a terminal message and stop once emit fails or ctx is done.
type Handler func(ctx context.Context, data []byte, emit func(protocol.Message) error) error

// InProcessSpawner runs each worker on its own goroutine. The worker shares no
// state with the extractor: it receives the archive bytes by transfer and
// answers through a channel.
type InProcessSpawner struct {
	logger  *zap.Logger
	handler Handler
}

func NewInProcessSpawner(logger *zap.Logger, handler Handler) *InProcessSpawner {
	return &InProcessSpawner{logger: logger, handler: handler}
}

func (s *InProcessSpawner) Available() error {
	if s.handler == nil {
		return fmt.Errorf("no handler configured")
	}
	return nil
}

func (s *InProcessSpawner) Spawn(_ context.Context) (untar.Worker, error) {
	ctx, cancel := context.WithCancel(context.Background())
	return &inProcessWorker{
		logger:  s.logger,
		handler: s.handler,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan untar.Event),
		done:    make(chan struct{}),
	}, nil
}

type inProcessWorker struct {
	logger  *zap.Logger
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan untar.Event
	done    chan struct{}

	mu      sync.Mutex
	started bool
}

func (w *inProcessWorker) Post(req protocol.ExtractRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		w.logger.Warn("ignoring extra request to in-process worker")
		return
	}
	w.started = true
	go w.run(req.Buffer)
}

func (w *inProcessWorker) Events() <-chan untar.Event {
	return w.events
}

func (w *inProcessWorker) Terminate() error {
	w.cancel()

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
	return nil
}

func (w *inProcessWorker) run(data []byte) {
	defer close(w.done)
	defer close(w.events)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			w.send(untar.Event{Fault: fmt.Errorf("worker panicked: %v", r)})
		}
	}()

	err := w.handler(w.ctx, data, func(m protocol.Message) error {
		if !w.send(untar.Event{Message: m}) {
			return fmt.Errorf("worker terminated: %w", w.ctx.Err())
		}
		return nil
	})
	if err != nil && w.ctx.Err() == nil {
		w.send(untar.Event{Fault: err})
	}
}

func (w *inProcessWorker) send(ev untar.Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.ctx.Done():
		return false
	}
}

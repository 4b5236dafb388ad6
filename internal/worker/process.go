package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/infracollect/untar/pkg/protocol"
	"github.com/infracollect/untar/pkg/untar"
	"go.uber.org/zap"
)

const ProcessKind = "process"

const waitDelay = 5 * time.Second

// exitGrace is how long a child that closed stdout gets to exit on its own
// before it is killed.
const exitGrace = 2 * time.Second

var errExitedEarly = errors.New("worker process exited without completing")

// ProcessConfig describes the program started for each worker. The program
// reads one request from stdin and writes messages to stdout in the
// protocol wire format.
type ProcessConfig struct {
	Program    []string
	Env        map[string]string
	WorkingDir string
}

// ProcessSpawner starts a child process per worker.
type ProcessSpawner struct {
	logger *zap.Logger
	cfg    ProcessConfig
}

func NewProcessSpawner(logger *zap.Logger, cfg ProcessConfig) (*ProcessSpawner, error) {
	if len(cfg.Program) == 0 {
		return nil, fmt.Errorf("program is required")
	}

	if cfg.WorkingDir != "" && !filepath.IsAbs(cfg.WorkingDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.WorkingDir = filepath.Join(cwd, cfg.WorkingDir)
	}

	return &ProcessSpawner{logger: logger, cfg: cfg}, nil
}

// Available reports whether the worker program can be found.
func (s *ProcessSpawner) Available() error {
	if _, err := exec.LookPath(s.cfg.Program[0]); err != nil {
		return fmt.Errorf("worker program %q not found: %w", s.cfg.Program[0], err)
	}
	return nil
}

func (s *ProcessSpawner) Spawn(_ context.Context) (untar.Worker, error) {
	// The process lifetime is bound to Terminate, not to a context.
	cmd := exec.Command(s.cfg.Program[0], s.cfg.Program[1:]...)
	cmd.WaitDelay = waitDelay
	if s.cfg.WorkingDir != "" {
		cmd.Dir = s.cfg.WorkingDir
	}

	cmd.Env = os.Environ()
	for k, v := range s.cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}
	w := &processWorker{
		logger:     s.logger,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		events:     make(chan untar.Event),
		terminated: make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
	cmd.Stderr = &w.stderr

	s.logger.Debug("starting worker process", zap.Strings("program", s.cfg.Program), zap.String("working_dir", cmd.Dir))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker process: %w", err)
	}
	w.started = time.Now()

	go w.readLoop()
	return w, nil
}

type processWorker struct {
	logger  *zap.Logger
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	stderr  bytes.Buffer
	started time.Time

	events     chan untar.Event
	terminated chan struct{}
	loopDone   chan struct{}

	postOnce      sync.Once
	terminateOnce sync.Once

	waitOnce sync.Once
	waitErr  error

	mu      sync.Mutex
	postErr error
}

// Post writes the request on its own goroutine so that a large archive never
// blocks the extractor while the child is still producing output.
func (w *processWorker) Post(req protocol.ExtractRequest) {
	w.postOnce.Do(func() {
		go func() {
			err := protocol.NewEncoder(w.stdin).EncodeRequest(req)
			err = errors.Join(err, w.stdin.Close())
			if err != nil {
				w.mu.Lock()
				w.postErr = err
				w.mu.Unlock()
				w.logger.Debug("failed to post request to worker process", zap.Error(err))
			}
		}()
	})
}

func (w *processWorker) Events() <-chan untar.Event {
	return w.events
}

// Terminate kills the child process and waits for the reader to finish.
func (w *processWorker) Terminate() error {
	var err error
	w.terminateOnce.Do(func() {
		close(w.terminated)
		if killErr := w.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			err = fmt.Errorf("failed to kill worker process: %w", killErr)
		}
		_ = w.stdout.Close()
		<-w.loopDone
	})
	return err
}

func (w *processWorker) readLoop() {
	defer close(w.loopDone)
	defer close(w.events)

	dec := protocol.NewDecoder(w.stdout)
	for {
		msg, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.stop(exitGrace)
			} else {
				// Nothing more can be read from this child.
				w.stop(0)
			}
			if w.isTerminated() {
				return
			}
			w.send(untar.Event{Fault: w.fault(err)})
			return
		}
		if !w.send(untar.Event{Message: msg}) {
			w.wait()
			return
		}
	}
}

// fault describes why the child stopped producing messages.
func (w *processWorker) fault(readErr error) error {
	if errors.Is(readErr, io.EOF) {
		readErr = nil
	}

	w.mu.Lock()
	postErr := w.postErr
	w.mu.Unlock()

	err := errors.Join(readErr, w.waitErr, postErr)
	if err == nil {
		err = errExitedEarly
	}

	exitCode := -1
	if w.cmd.ProcessState != nil {
		exitCode = w.cmd.ProcessState.ExitCode()
	}
	w.logger.Debug("worker process stopped",
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", time.Since(w.started)),
	)

	if stderr := strings.TrimSpace(w.stderr.String()); stderr != "" {
		return fmt.Errorf("%w: %s", err, stderr)
	}
	return err
}

// stop waits up to grace for the child to exit, then kills it and reaps it.
func (w *processWorker) stop(grace time.Duration) {
	exited := make(chan struct{})
	go func() {
		w.wait()
		close(exited)
	}()

	if grace > 0 {
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-exited:
			return
		case <-timer.C:
		}
	}

	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		w.logger.Debug("failed to kill worker process", zap.Error(err))
	}
	_ = w.stdout.Close()
	<-exited
}

func (w *processWorker) wait() {
	w.waitOnce.Do(func() {
		w.waitErr = w.cmd.Wait()
	})
}

func (w *processWorker) isTerminated() bool {
	select {
	case <-w.terminated:
		return true
	default:
		return false
	}
}

func (w *processWorker) send(ev untar.Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.terminated:
		return false
	}
}

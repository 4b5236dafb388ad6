package untar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/infracollect/untar/pkg/future"
	"github.com/infracollect/untar/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedWorker replays a fixed list of events after Post.
type scriptedWorker struct {
	script []Event
	events chan Event

	mu         sync.Mutex
	posted     [][]byte
	terminated int
	stop       chan struct{}
	stopOnce   sync.Once
}

func newScriptedWorker(script ...Event) *scriptedWorker {
	return &scriptedWorker{
		script: script,
		events: make(chan Event),
		stop:   make(chan struct{}),
	}
}

func (w *scriptedWorker) Post(req protocol.ExtractRequest) {
	w.mu.Lock()
	w.posted = append(w.posted, req.Buffer)
	w.mu.Unlock()

	go func() {
		defer close(w.events)
		for _, ev := range w.script {
			select {
			case w.events <- ev:
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *scriptedWorker) Events() <-chan Event { return w.events }

func (w *scriptedWorker) Terminate() error {
	w.mu.Lock()
	w.terminated++
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.stop) })
	return nil
}

func (w *scriptedWorker) terminations() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.terminated
}

type fakeSpawner struct {
	worker   Worker
	spawnErr error
	availErr error

	mu     sync.Mutex
	spawns int
}

func (s *fakeSpawner) Available() error { return s.availErr }

func (s *fakeSpawner) Spawn(context.Context) (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawns++
	if s.spawnErr != nil {
		return nil, s.spawnErr
	}
	return s.worker, nil
}

func (s *fakeSpawner) spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawns
}

type recordedLog struct {
	level protocol.Level
	text  string
}

type recordingSink struct {
	mu   sync.Mutex
	logs []recordedLog
}

func (s *recordingSink) Log(level protocol.Level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, recordedLog{level: level, text: text})
}

func msg(m protocol.Message) Event { return Event{Message: m} }

func entryMsg(name string, content string) Event {
	return msg(protocol.Extracted{Entry: protocol.RawEntry{
		Name:   name,
		Buffer: []byte(content),
		Size:   int64(len(content)),
		Type:   protocol.TypeRegular,
	}})
}

func names(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func startExtraction(t *testing.T, worker Worker, opts ...Option) (*Extraction, *[]*Entry) {
	t.Helper()
	extractor := New(zap.NewNop(), &fakeSpawner{worker: worker}, opts...)

	progress := []*Entry{}
	extraction, err := extractor.Extract(t.Context(), NewBuffer([]byte("archive")), func(e *Entry) {
		progress = append(progress, e)
	})
	require.NoError(t, err)
	return extraction, &progress
}

func await(t *testing.T, extraction *Extraction) ([]*Entry, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	return extraction.Await(ctx)
}

func TestExtract_EntriesThenComplete(t *testing.T) {
	worker := newScriptedWorker(
		entryMsg("a.txt", "hello"),
		entryMsg("b.bin", "\x00\x01"),
		msg(protocol.Complete{}),
	)

	extractor := New(zap.NewNop(), &fakeSpawner{worker: worker})

	var progress []string
	extraction, err := extractor.Extract(t.Context(), NewBuffer([]byte("archive")), func(e *Entry) {
		progress = append(progress, e.Name())
	})
	require.NoError(t, err)

	entries, err := await(t, extraction)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.bin"}, progress)
	assert.Equal(t, []string{"a.txt", "b.bin"}, names(entries))
	assert.Equal(t, 1, worker.terminations())
	assert.Equal(t, [][]byte{[]byte("archive")}, worker.posted)
	assert.Equal(t, future.Fulfilled, extraction.State())
}

func TestExtract_ProgressMatchesFulfillment(t *testing.T) {
	worker := newScriptedWorker(
		msg(protocol.Log{Level: protocol.LevelInfo, Text: "start"}),
		entryMsg("one", "1"),
		entryMsg("two", "2"),
		entryMsg("three", "3"),
		msg(protocol.Complete{}),
	)

	extraction, progress := startExtraction(t, worker)
	entries, err := await(t, extraction)
	require.NoError(t, err)

	require.Len(t, *progress, len(entries))
	for i := range entries {
		assert.Same(t, entries[i], (*progress)[i])
	}
}

func TestExtract_CompleteWithoutEntries(t *testing.T) {
	worker := newScriptedWorker(msg(protocol.Complete{}))

	extraction, progress := startExtraction(t, worker)
	entries, err := await(t, extraction)
	require.NoError(t, err)

	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Empty(t, *progress)
	assert.Equal(t, 1, worker.terminations())
}

func TestExtract_LogThenError(t *testing.T) {
	worker := newScriptedWorker(
		msg(protocol.Log{Level: protocol.LevelWarn, Text: "bad header"}),
		msg(protocol.Failure{Message: "boom"}),
	)
	sink := &recordingSink{}

	extraction, progress := startExtraction(t, worker, WithDiagnostics(sink))
	entries, err := await(t, extraction)

	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Empty(t, *progress)
	assert.Equal(t, "boom", err.Error())

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "boom", extractionErr.Message)

	assert.Equal(t, []recordedLog{{level: protocol.LevelWarn, text: "bad header"}}, sink.logs)
	assert.Equal(t, 1, worker.terminations())
}

func TestExtract_UnknownTag(t *testing.T) {
	worker := newScriptedWorker(
		msg(protocol.Unknown{Type: "weird"}),
		entryMsg("never.txt", "x"),
		msg(protocol.Complete{}),
	)

	extraction, progress := startExtraction(t, worker)
	_, err := await(t, extraction)

	var violation *ProtocolViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "weird", violation.Tag)
	assert.ErrorContains(t, err, "weird")
	assert.Empty(t, *progress, "no message may be processed after the violation")
	assert.Equal(t, 1, worker.terminations())
}

func TestExtract_EchoedRequestIsViolation(t *testing.T) {
	worker := newScriptedWorker(msg(protocol.ExtractRequest{}))

	extraction, _ := startExtraction(t, worker)
	_, err := await(t, extraction)

	var violation *ProtocolViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "extract", violation.Tag)
}

func TestExtract_WorkerFault(t *testing.T) {
	crash := errors.New("segfault")
	worker := newScriptedWorker(
		entryMsg("a.txt", "a"),
		Event{Fault: crash},
	)

	extraction, progress := startExtraction(t, worker)
	_, err := await(t, extraction)

	var fault *WorkerFaultError
	require.ErrorAs(t, err, &fault)
	assert.ErrorIs(t, err, crash)
	assert.Len(t, *progress, 1)
	assert.Equal(t, 0, worker.terminations(), "a faulted worker is not terminated again")
}

func TestExtract_WorkerStopsWithoutTerminalMessage(t *testing.T) {
	worker := newScriptedWorker(entryMsg("a.txt", "a"))

	extraction, _ := startExtraction(t, worker)
	_, err := await(t, extraction)

	var fault *WorkerFaultError
	require.ErrorAs(t, err, &fault)
	assert.ErrorIs(t, err, errWorkerStopped)
}

func TestExtract_SpawnFailure(t *testing.T) {
	spawner := &fakeSpawner{spawnErr: errors.New("exec format error")}
	extractor := New(zap.NewNop(), spawner)

	extraction, err := extractor.Extract(t.Context(), NewBuffer([]byte("x")))
	require.NoError(t, err, "spawn failures surface through the extraction")

	_, err = await(t, extraction)
	var fault *WorkerFaultError
	require.ErrorAs(t, err, &fault)
	assert.ErrorContains(t, err, "exec format error")
}

func TestExtract_Cancellation(t *testing.T) {
	// Never sends anything until terminated.
	worker := &blockingWorker{events: make(chan Event), stopped: make(chan struct{})}
	extractor := New(zap.NewNop(), &fakeSpawner{worker: worker})

	ctx, cancel := context.WithCancel(t.Context())
	extraction, err := extractor.Extract(ctx, NewBuffer([]byte("x")))
	require.NoError(t, err)

	cancel()
	_, err = await(t, extraction)
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-worker.stopped:
	default:
		t.Fatal("worker was not terminated on cancellation")
	}
}

type blockingWorker struct {
	events  chan Event
	stopped chan struct{}
}

func (w *blockingWorker) Post(protocol.ExtractRequest) {}
func (w *blockingWorker) Events() <-chan Event          { return w.events }
func (w *blockingWorker) Terminate() error {
	close(w.stopped)
	return nil
}

func TestExtract_Preconditions(t *testing.T) {
	t.Run("nil buffer", func(t *testing.T) {
		spawner := &fakeSpawner{worker: newScriptedWorker()}
		_, err := New(zap.NewNop(), spawner).Extract(t.Context(), nil)
		require.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, 0, spawner.spawned())
	})

	t.Run("moved buffer", func(t *testing.T) {
		spawner := &fakeSpawner{worker: newScriptedWorker()}
		buf := NewBuffer([]byte("x"))
		_, err := buf.Transfer()
		require.NoError(t, err)

		_, err = New(zap.NewNop(), spawner).Extract(t.Context(), buf)
		require.ErrorIs(t, err, ErrInvalidArgument)
		assert.ErrorIs(t, err, ErrBufferMoved)
		assert.Equal(t, 0, spawner.spawned())
	})

	t.Run("no spawner", func(t *testing.T) {
		_, err := New(zap.NewNop(), nil).Extract(t.Context(), NewBuffer([]byte("x")))
		require.ErrorIs(t, err, ErrEnvironmentUnsupported)
	})

	t.Run("spawner unavailable", func(t *testing.T) {
		spawner := &fakeSpawner{availErr: errors.New("no such program")}
		buf := NewBuffer([]byte("x"))
		_, err := New(zap.NewNop(), spawner).Extract(t.Context(), buf)
		require.ErrorIs(t, err, ErrEnvironmentUnsupported)
		assert.ErrorContains(t, err, "no such program")
		assert.False(t, buf.Moved(), "buffer stays with the caller when extraction never starts")
	})
}

func TestExtract_TransfersBuffer(t *testing.T) {
	worker := newScriptedWorker(msg(protocol.Complete{}))
	extractor := New(zap.NewNop(), &fakeSpawner{worker: worker})

	buf := NewBuffer([]byte("archive"))
	extraction, err := extractor.Extract(t.Context(), buf)
	require.NoError(t, err)

	assert.True(t, buf.Moved())
	_, err = buf.Bytes()
	require.ErrorIs(t, err, ErrBufferMoved)

	_, err = extractor.Extract(t.Context(), buf)
	require.ErrorIs(t, err, ErrInvalidArgument, "a moved buffer cannot be extracted twice")

	_, err = await(t, extraction)
	require.NoError(t, err)
}

func TestExtract_EntriesShareObjectURLs(t *testing.T) {
	registry := NewURLRegistry()
	worker := newScriptedWorker(entryMsg("a.txt", "abc"), msg(protocol.Complete{}))

	extraction, _ := startExtraction(t, worker, WithObjectURLs(registry))
	entries, err := await(t, extraction)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	url, err := entries[0].BlobURL()
	require.NoError(t, err)

	blob, ok := registry.Resolve(url)
	require.True(t, ok)
	assert.Same(t, entries[0].Blob(), blob)
}

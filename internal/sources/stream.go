package sources

import (
	"context"
	"fmt"
	"io"

	"github.com/infracollect/untar/internal/engine"
)

const StdinKind = "stdin"

// StreamSource reads the whole archive from a reader, usually stdin.
type StreamSource struct {
	r io.Reader
}

func NewStdinSource(r io.Reader) engine.Source {
	return &StreamSource{r: r}
}

func (s *StreamSource) Name() string {
	return StdinKind
}

func (s *StreamSource) Kind() string {
	return StdinKind
}

func (s *StreamSource) Fetch(ctx context.Context) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	// Reads on stdin cannot be interrupted, so the read runs detached and a
	// cancelled fetch abandons it.
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(s.r)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("failed to read archive from %s: %w", StdinKind, res.err)
		}
		return res.data, nil
	}
}

package tarworker

import (
	"context"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/infracollect/untar/pkg/protocol"
)

// Serve reads one extract request from r and writes the resulting messages
// to w in the protocol wire format.
func Serve(ctx context.Context, logger logr.Logger, r io.Reader, w io.Writer) error {
	req, err := protocol.NewDecoder(r).DecodeRequest()
	if err != nil {
		return fmt.Errorf("failed to read extract request: %w", err)
	}

	enc := protocol.NewEncoder(w)
	if err := Extract(ctx, logger, req.Buffer, enc.Encode); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}
	return nil
}

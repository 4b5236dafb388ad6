// Package tarworker is the worker side of an extraction: it decodes a tar
// archive, optionally compressed, and reports each member as a protocol
// message.
package tarworker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/infracollect/untar/pkg/protocol"
)

// Extract decodes data and emits one Extracted message per archive member,
// then Complete. Archive errors are reported as a Failure message, not as a
// returned error; the returned error is reserved for emit failures and
// cancellation.
func Extract(ctx context.Context, logger logr.Logger, data []byte, emit func(protocol.Message) error) error {
	compression := DetectCompression(data)
	logger.V(1).Info("extracting archive", "bytes", len(data), "compression", compression)

	if err := emit(protocol.Log{
		Level: protocol.LevelDebug,
		Text:  fmt.Sprintf("extracting %d bytes (compression: %s)", len(data), compression),
	}); err != nil {
		return err
	}

	r, err := newDecompressor(compression, bytes.NewReader(data))
	if err != nil {
		return emit(protocol.Failure{Message: err.Error()})
	}
	defer r.Close()

	tr := tar.NewReader(r)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error(err, "failed to read tar header", "entries", count)
			return emit(protocol.Failure{Message: fmt.Sprintf("failed to read tar header: %v", err)})
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return emit(protocol.Failure{Message: fmt.Sprintf("failed to read %s: %v", header.Name, err)})
		}

		if err := emit(protocol.Extracted{Entry: rawEntry(header, content)}); err != nil {
			return err
		}
		count++
	}

	logger.V(1).Info("archive extracted", "entries", count)
	return emit(protocol.Complete{})
}

func rawEntry(h *tar.Header, content []byte) protocol.RawEntry {
	typeflag := h.Typeflag
	if typeflag == tar.TypeRegA {
		typeflag = tar.TypeReg
	}

	return protocol.RawEntry{
		Name:     h.Name,
		Buffer:   content,
		Size:     h.Size,
		Type:     protocol.EntryType([]byte{typeflag}),
		Mode:     h.Mode,
		UID:      h.Uid,
		GID:      h.Gid,
		Uname:    h.Uname,
		Gname:    h.Gname,
		ModTime:  h.ModTime.UTC(),
		Linkname: h.Linkname,
		Devmajor: h.Devmajor,
		Devminor: h.Devminor,
		Format:   h.Format.String(),
		PAX:      h.PAXRecords,
	}
}

package tarworker

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	name    string
	content string
	mode    int64
	typ     byte
}

var testModTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// buildArchive writes files into a tar stream wrapped in the given compression.
func buildArchive(t *testing.T, compression CompressionType, files ...testFile) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	var compressor io.WriteCloser
	switch compression {
	case CompressionGzip:
		compressor = gzip.NewWriter(buf)
	case CompressionZstd:
		zw, err := zstd.NewWriter(buf)
		require.NoError(t, err)
		compressor = zw
	case CompressionLZ4:
		compressor = lz4.NewWriter(buf)
	case CompressionNone:
		compressor = &nopWriteCloser{buf}
	default:
		t.Fatalf("unsupported compression %s", compression)
	}

	tw := tar.NewWriter(compressor)
	for _, f := range files {
		mode := f.mode
		if mode == 0 {
			mode = 0o644
		}
		typ := f.typ
		if typ == 0 {
			typ = tar.TypeReg
		}
		header := &tar.Header{
			Name:     f.name,
			Mode:     mode,
			Size:     int64(len(f.content)),
			Typeflag: typ,
			ModTime:  testModTime,
			Uname:    "builder",
		}
		if typ == tar.TypeDir {
			header.Size = 0
		}
		require.NoError(t, tw.WriteHeader(header))
		if header.Size > 0 {
			_, err := tw.Write([]byte(f.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, compressor.Close())

	return buf.Bytes()
}

type nopWriteCloser struct {
	io.Writer
}

func (n *nopWriteCloser) Close() error {
	return nil
}

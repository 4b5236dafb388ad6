package sources

import (
	"context"
	"fmt"
	"io"
	"time"

	v1 "github.com/infracollect/untar/apis/v1"
	"github.com/infracollect/untar/internal/engine"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
)

// StdinName is the injector name of the reader used by the stdin source.
const StdinName = "stdin"

// Register registers every source factory with the registry. The file source
// resolves an afero.Fs from the injector, the stdin source a reader named
// StdinName.
func Register(r *engine.Registry) {
	r.RegisterSource(FileKind, engine.NewSourceFactory(FileKind, fileFactory))
	r.RegisterSource(StdinKind, engine.NewSourceFactory(StdinKind, stdinFactory))
	r.RegisterSource(HTTPKind, engine.NewSourceFactory(HTTPKind, httpFactory))
	r.RegisterSource(S3Kind, engine.NewSourceFactory(S3Kind, s3Factory))
}

func fileFactory(_ context.Context, i do.Injector, spec *v1.FileSource) (engine.Source, error) {
	fs, err := do.Invoke[afero.Fs](i)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve filesystem: %w", err)
	}
	return NewFileSource(fs, spec.Path)
}

func stdinFactory(_ context.Context, i do.Injector, _ *v1.StdinSource) (engine.Source, error) {
	r, err := do.InvokeNamed[io.Reader](i, StdinName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stdin: %w", err)
	}
	return NewStdinSource(r), nil
}

func httpFactory(_ context.Context, _ do.Injector, spec *v1.HTTPSource) (engine.Source, error) {
	cfg := HTTPConfig{
		URL:      spec.URL,
		Headers:  spec.Headers,
		Insecure: spec.Insecure,
	}
	if spec.Timeout != nil {
		cfg.Timeout = time.Duration(*spec.Timeout) * time.Second
	}
	return NewHTTPSource(cfg)
}

func s3Factory(ctx context.Context, _ do.Injector, spec *v1.S3Source) (engine.Source, error) {
	return NewS3Source(ctx, S3Config{
		Bucket:          spec.Bucket,
		Key:             spec.Key,
		Region:          spec.Region,
		Endpoint:        spec.Endpoint,
		AccessKeyID:     spec.AccessKeyID,
		SecretAccessKey: spec.SecretAccessKey,
		ForcePathStyle:  spec.ForcePathStyle,
	})
}

package main

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	v1 "github.com/infracollect/untar/apis/v1"
	"github.com/infracollect/untar/internal/runner"
	"github.com/infracollect/untar/internal/worker"
	"github.com/samber/lo"
)

// readJobFile reads a job file, "-" meaning stdin.
func readJobFile(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filename)
}

// sourceFromLocation maps an archive argument to a source: "-" or nothing is
// stdin, http(s):// URLs are fetched, s3://bucket/key is downloaded and
// anything else is a local path.
func sourceFromLocation(location string) (v1.Source, error) {
	switch {
	case location == "" || location == "-":
		return v1.Source{Stdin: &v1.StdinSource{}}, nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return v1.Source{HTTP: &v1.HTTPSource{URL: location}}, nil
	case strings.HasPrefix(location, "s3://"):
		u, err := url.Parse(location)
		if err != nil {
			return v1.Source{}, fmt.Errorf("failed to parse s3 location %q: %w", location, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return v1.Source{}, fmt.Errorf("s3 location %q must be s3://bucket/key", location)
		}
		return v1.Source{S3: &v1.S3Source{Bucket: u.Host, Key: key}}, nil
	default:
		return v1.Source{File: &v1.FileSource{Path: location}}, nil
	}
}

// adhocJob builds the job equivalent to `untar extract <location>`.
func adhocJob(location string) (v1.ExtractJob, error) {
	source, err := sourceFromLocation(location)
	if err != nil {
		return v1.ExtractJob{}, err
	}

	name := path.Base(location)
	if location == "" || location == "-" {
		name = "stdin"
	}

	return v1.ExtractJob{
		Kind:     v1.ExtractJobKind,
		Metadata: v1.Metadata{Name: name},
		Spec:     v1.ExtractJobSpec{Source: source},
	}, nil
}

// jobOverrides are the extract flags that replace job file settings when set.
type jobOverrides struct {
	Worker  *string
	Program []string
	Filter  *string
	Timeout *time.Duration
	Show    *string
	Content *bool
}

func applyOverrides(job *v1.ExtractJob, o jobOverrides) error {
	if o.Worker != nil {
		switch *o.Worker {
		case worker.InProcessKind:
			job.Spec.Worker = &v1.Worker{InProcess: &v1.InProcessWorker{}}
		case worker.ProcessKind:
			job.Spec.Worker = &v1.Worker{Process: &v1.ProcessWorker{}}
		default:
			return fmt.Errorf("unsupported worker %q (available: %s, %s)", *o.Worker, worker.InProcessKind, worker.ProcessKind)
		}
	}

	if len(o.Program) > 0 {
		if job.Spec.Worker == nil || job.Spec.Worker.Process == nil {
			job.Spec.Worker = &v1.Worker{Process: &v1.ProcessWorker{}}
		}
		job.Spec.Worker.Process.Program = o.Program
	}

	if o.Filter != nil {
		job.Spec.Filter = *o.Filter
	}

	if o.Timeout != nil {
		job.Spec.Timeout = lo.ToPtr(int(math.Ceil(o.Timeout.Seconds())))
	}

	if o.Show != nil || o.Content != nil {
		if job.Spec.Output == nil {
			job.Spec.Output = &v1.OutputSpec{}
		}
		if o.Show != nil {
			job.Spec.Output.Show = *o.Show
		}
		if o.Content != nil {
			job.Spec.Output.Content = *o.Content
		}
	}

	return runner.ValidateExtractJob(*job)
}

// defaultShow picks a table for terminals and JSON lines otherwise.
func defaultShow(interactive bool) string {
	if interactive {
		return runner.ShowText
	}
	return runner.ShowJSON
}

// workerProgram is the program used by process workers without their own:
// this executable's hidden worker command.
func workerProgram() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return []string{exe, workerCommand.Name}, nil
}

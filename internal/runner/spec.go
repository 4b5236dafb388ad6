package runner

import (
	"fmt"

	v1 "github.com/infracollect/untar/apis/v1"
	"github.com/infracollect/untar/internal/sources"
	"github.com/infracollect/untar/internal/worker"
)

// ResolvedSpec holds a kind identifier and the spec for that kind.
type ResolvedSpec struct {
	Kind string
	Spec any
}

// ResolveSourceSpec extracts the kind and spec from a v1.Source.
// Exactly one source type must be set.
func ResolveSourceSpec(s v1.Source) (ResolvedSpec, error) {
	var resolved []ResolvedSpec
	if s.File != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sources.FileKind, Spec: s.File})
	}
	if s.Stdin != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sources.StdinKind, Spec: s.Stdin})
	}
	if s.HTTP != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sources.HTTPKind, Spec: s.HTTP})
	}
	if s.S3 != nil {
		resolved = append(resolved, ResolvedSpec{Kind: sources.S3Kind, Spec: s.S3})
	}

	switch len(resolved) {
	case 0:
		return ResolvedSpec{}, fmt.Errorf("source has no type specified")
	case 1:
		return resolved[0], nil
	default:
		return ResolvedSpec{}, fmt.Errorf("source has %d types specified, expected one", len(resolved))
	}
}

// ResolveWorkerSpec extracts the kind and spec from a v1.Worker. A nil worker
// resolves to the in-process worker.
func ResolveWorkerSpec(w *v1.Worker) (ResolvedSpec, error) {
	switch {
	case w == nil:
		return ResolvedSpec{Kind: worker.InProcessKind, Spec: &v1.InProcessWorker{}}, nil
	case w.InProcess != nil && w.Process != nil:
		return ResolvedSpec{}, fmt.Errorf("worker has 2 types specified, expected one")
	case w.InProcess != nil:
		return ResolvedSpec{Kind: worker.InProcessKind, Spec: w.InProcess}, nil
	case w.Process != nil:
		return ResolvedSpec{Kind: worker.ProcessKind, Spec: w.Process}, nil
	default:
		return ResolvedSpec{}, fmt.Errorf("worker has no type specified")
	}
}

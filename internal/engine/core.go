package engine

import "context"

type Named interface {
	Name() string
	Kind() string
}

// Source produces the bytes of one archive.
type Source interface {
	Named
	Fetch(ctx context.Context) ([]byte, error)
}

const (
	// ISO8601Basic is a URL-safe timestamp format without colons.
	ISO8601Basic = "20060102T150405Z"
)

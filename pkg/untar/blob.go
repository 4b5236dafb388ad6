package untar

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Blob is a read-only view over an entry's content.
type Blob struct {
	data []byte
}

func newBlob(data []byte) *Blob {
	return &Blob{data: data}
}

func (b *Blob) Size() int64 {
	return int64(len(b.data))
}

// NewReader returns a reader over the blob content.
func (b *Blob) NewReader() *bytes.Reader {
	return bytes.NewReader(b.data)
}

// Bytes returns a copy of the blob content.
func (b *Blob) Bytes() []byte {
	return bytes.Clone(b.data)
}

// ObjectURLs hands out URL-like handles that reference a Blob.
type ObjectURLs interface {
	CreateObjectURL(b *Blob) (string, error)
}

const blobURLPrefix = "blob:untar/"

// URLRegistry is an in-memory ObjectURLs. Handles live until revoked.
type URLRegistry struct {
	mu    sync.RWMutex
	blobs map[string]*Blob
}

func NewURLRegistry() *URLRegistry {
	return &URLRegistry{blobs: make(map[string]*Blob)}
}

func (r *URLRegistry) CreateObjectURL(b *Blob) (string, error) {
	if b == nil {
		return "", fmt.Errorf("cannot create object url for nil blob")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate object url: %w", err)
	}
	url := blobURLPrefix + id.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[url] = b
	return url, nil
}

// Resolve returns the blob referenced by url, if it has not been revoked.
func (r *URLRegistry) Resolve(url string) (*Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[url]
	return b, ok
}

// Revoke releases url. Revoking an unknown url is a no-op.
func (r *URLRegistry) Revoke(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blobs, url)
}

// Len returns the number of live handles.
func (r *URLRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

package untar

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/infracollect/untar/pkg/protocol"
)

// Entry is an extracted archive member together with lazily computed views
// over its content. Every view is computed at most once and then cached for
// the lifetime of the Entry.
//
// An Entry owns its content buffer; callers must treat Buffer's result as
// read-only. Object URLs created through BlobURL are never revoked by this
// package.
type Entry struct {
	raw  protocol.RawEntry
	urls ObjectURLs

	blobOnce sync.Once
	blob     *Blob

	urlMu sync.Mutex
	url   string

	textOnce sync.Once
	text     string

	jsonOnce  sync.Once
	jsonValue any
	jsonErr   error

	yamlOnce  sync.Once
	yamlValue any
	yamlErr   error
}

// NewEntry decorates raw. The entry takes ownership of raw.Buffer. urls may
// be nil, in which case BlobURL fails.
func NewEntry(raw protocol.RawEntry, urls ObjectURLs) *Entry {
	return &Entry{raw: raw, urls: urls}
}

func (e *Entry) Name() string {
	return e.raw.Name
}

func (e *Entry) Size() int64 {
	return e.raw.Size
}

func (e *Entry) Type() protocol.EntryType {
	return e.raw.Type
}

func (e *Entry) Mode() int64 {
	return e.raw.Mode
}

func (e *Entry) ModTime() time.Time {
	return e.raw.ModTime
}

// Buffer returns the entry content. It must not be modified.
func (e *Entry) Buffer() []byte {
	return e.raw.Buffer
}

// Header returns the worker-supplied metadata without the content.
func (e *Entry) Header() protocol.RawEntry {
	h := e.raw
	h.Buffer = nil
	return h
}

// Blob returns a binary wrapper over the content. Repeated calls return the
// same *Blob.
func (e *Entry) Blob() *Blob {
	e.blobOnce.Do(func() {
		e.blob = newBlob(e.raw.Buffer)
	})
	return e.blob
}

// BlobURL returns an object URL for Blob. The first successful call creates
// the handle and later calls reuse it.
func (e *Entry) BlobURL() (string, error) {
	e.urlMu.Lock()
	defer e.urlMu.Unlock()

	if e.url != "" {
		return e.url, nil
	}
	if e.urls == nil {
		return "", fmt.Errorf("no object url registry configured for entry %s", e.raw.Name)
	}

	url, err := e.urls.CreateObjectURL(e.Blob())
	if err != nil {
		return "", fmt.Errorf("failed to create object url for entry %s: %w", e.raw.Name, err)
	}
	e.url = url
	return url, nil
}

// Text maps every content byte to the character with the same code
// (0x00-0xFF). It is not a UTF-8 decode: the mapping is one character per
// byte and lossless.
func (e *Entry) Text() string {
	e.textOnce.Do(func() {
		var sb strings.Builder
		sb.Grow(len(e.raw.Buffer))
		for _, b := range e.raw.Buffer {
			sb.WriteRune(rune(b))
		}
		e.text = sb.String()
	})
	return e.text
}

// JSON parses Text as a JSON document. A malformed document yields a
// *SyntaxError.
func (e *Entry) JSON() (any, error) {
	e.jsonOnce.Do(func() {
		var v any
		if err := json.Unmarshal([]byte(e.Text()), &v); err != nil {
			e.jsonErr = &SyntaxError{Entry: e.raw.Name, Format: "json", Err: err}
			return
		}
		e.jsonValue = v
	})
	return e.jsonValue, e.jsonErr
}

// YAML parses Text as a YAML document. A malformed document yields a
// *SyntaxError.
func (e *Entry) YAML() (any, error) {
	e.yamlOnce.Do(func() {
		var v any
		if err := yaml.Unmarshal([]byte(e.Text()), &v); err != nil {
			e.yamlErr = &SyntaxError{Entry: e.raw.Name, Format: "yaml", Err: err}
			return
		}
		e.yamlValue = v
	})
	return e.yamlValue, e.yamlErr
}

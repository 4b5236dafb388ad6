// Package protocol defines the messages exchanged between an extractor and
// its worker.
//
// The extractor sends exactly one ExtractRequest. The worker answers with any
// number of Log and Extracted messages followed by one terminal message,
// either Complete or Failure. Input that does not map to a known message is
// represented as Unknown rather than dropped, so receivers can treat it as a
// protocol violation.
package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Tag identifies a message on the wire.
type Tag string

const (
	TagExtract  Tag = "extract"
	TagLog      Tag = "log"
	TagComplete Tag = "complete"
	TagError    Tag = "error"
)

// Message is implemented by every protocol message. The set is closed.
type Message interface {
	Tag() Tag
	isMessage()
}

// ExtractRequest asks the worker to extract Buffer. It is the only message
// ever sent to a worker; ownership of Buffer moves with it.
type ExtractRequest struct {
	Buffer []byte
}

// Log is a diagnostic line from the worker.
type Log struct {
	Level Level
	Text  string
}

// Extracted carries one archive member.
type Extracted struct {
	Entry RawEntry
}

// Complete reports that no more entries will follow.
type Complete struct{}

// Failure reports an unrecoverable extraction error.
type Failure struct {
	Message string
}

// Unknown stands for any input that is not a valid worker message: an
// unrecognized tag, or a known tag whose payload could not be decoded.
type Unknown struct {
	Type   string
	Reason string
}

func (ExtractRequest) Tag() Tag { return TagExtract }
func (Log) Tag() Tag            { return TagLog }
func (Extracted) Tag() Tag      { return TagExtract }
func (Complete) Tag() Tag       { return TagComplete }
func (Failure) Tag() Tag        { return TagError }
func (m Unknown) Tag() Tag      { return Tag(m.Type) }

func (ExtractRequest) isMessage() {}
func (Log) isMessage()            {}
func (Extracted) isMessage()      {}
func (Complete) isMessage()       {}
func (Failure) isMessage()        {}
func (Unknown) isMessage()        {}

// Terminal reports whether m ends the exchange.
func Terminal(m Message) bool {
	switch m.(type) {
	case Complete, Failure:
		return true
	default:
		return false
	}
}

// Level is the severity of a Log message.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelLog   Level = "log"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel validates a severity name. Unknown names are rejected.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(s)); l {
	case LevelDebug, LevelInfo, LevelLog, LevelWarn, LevelError:
		return l, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// EntryType is the archive type flag of an entry, as a single character
// ("0" regular file, "5" directory, ...).
type EntryType string

const (
	TypeRegular EntryType = "0"
	TypeLink    EntryType = "1"
	TypeSymlink EntryType = "2"
	TypeChar    EntryType = "3"
	TypeBlock   EntryType = "4"
	TypeDir     EntryType = "5"
	TypeFifo    EntryType = "6"
)

// RawEntry is one archive member as produced by a worker. Only Name and
// Buffer matter to the extractor; the remaining fields are passed through.
type RawEntry struct {
	Name     string            `json:"name"`
	Buffer   []byte            `json:"buffer"`
	Size     int64             `json:"size"`
	Type     EntryType         `json:"type,omitempty"`
	Mode     int64             `json:"mode"`
	UID      int               `json:"uid"`
	GID      int               `json:"gid"`
	Uname    string            `json:"uname,omitempty"`
	Gname    string            `json:"gname,omitempty"`
	ModTime  time.Time         `json:"mtime"`
	Linkname string            `json:"linkname,omitempty"`
	Devmajor int64             `json:"devmajor,omitempty"`
	Devminor int64             `json:"devminor,omitempty"`
	Format   string            `json:"format,omitempty"`
	PAX      map[string]string `json:"pax,omitempty"`
}

package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/infracollect/untar/pkg/protocol"
	"github.com/infracollect/untar/pkg/untar"
)

const (
	ShowText = "text"
	ShowJSON = "json"
	ShowYAML = "yaml"
)

// Reporter writes entries as they are extracted. Report is never called
// concurrently.
type Reporter interface {
	Report(entry *untar.Entry) error
	Finish(summary Summary) error
}

// Summary describes a finished run.
type Summary struct {
	Source   string        `json:"source" yaml:"source"`
	Entries  int           `json:"entries" yaml:"entries"`
	Matched  int           `json:"matched" yaml:"matched"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// NewReporter returns the reporter for show. content adds entry content to
// json and yaml reports.
func NewReporter(show string, w io.Writer, content bool) (Reporter, error) {
	switch show {
	case "", ShowText:
		return &textReporter{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0), w: w}, nil
	case ShowJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return &recordReporter{content: content, write: enc.Encode}, nil
	case ShowYAML:
		return &recordReporter{content: content, write: func(v any) error {
			data, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "---\n%s", data)
			return err
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (available: %s)", show, strings.Join([]string{ShowText, ShowJSON, ShowYAML}, ", "))
	}
}

type textReporter struct {
	tw     *tabwriter.Writer
	w      io.Writer
	header bool
}

func (r *textReporter) Report(entry *untar.Entry) error {
	if !r.header {
		r.header = true
		if _, err := fmt.Fprintln(r.tw, "MODE\tSIZE\tMODIFIED\tNAME"); err != nil {
			return err
		}
	}

	h := entry.Header()
	name := h.Name
	if h.Linkname != "" {
		name = fmt.Sprintf("%s -> %s", h.Name, h.Linkname)
	}
	_, err := fmt.Fprintf(r.tw, "%s\t%d\t%s\t%s\n", fileMode(h), h.Size, h.ModTime.Format(time.DateTime), name)
	return err
}

func (r *textReporter) Finish(summary Summary) error {
	if err := r.tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(r.w, "\n%d entries (%d matched, %d bytes) from %s in %s\n",
		summary.Entries, summary.Matched, summary.Bytes, summary.Source, summary.Duration.Round(time.Millisecond))
	return err
}

func fileMode(h protocol.RawEntry) os.FileMode {
	mode := os.FileMode(h.Mode) & os.ModePerm
	switch h.Type {
	case protocol.TypeDir:
		mode |= os.ModeDir
	case protocol.TypeSymlink:
		mode |= os.ModeSymlink
	case protocol.TypeChar:
		mode |= os.ModeDevice | os.ModeCharDevice
	case protocol.TypeBlock:
		mode |= os.ModeDevice
	case protocol.TypeFifo:
		mode |= os.ModeNamedPipe
	}
	return mode
}

type entryRecord struct {
	Name     string             `json:"name" yaml:"name"`
	Type     protocol.EntryType `json:"type" yaml:"type"`
	Size     int64              `json:"size" yaml:"size"`
	Mode     string             `json:"mode" yaml:"mode"`
	ModTime  time.Time          `json:"mtime" yaml:"mtime"`
	Uname    string             `json:"uname,omitempty" yaml:"uname,omitempty"`
	Gname    string             `json:"gname,omitempty" yaml:"gname,omitempty"`
	Linkname string             `json:"linkname,omitempty" yaml:"linkname,omitempty"`
	Content  any                `json:"content,omitempty" yaml:"content,omitempty"`
}

type recordReporter struct {
	content bool
	write   func(any) error
}

func (r *recordReporter) Report(entry *untar.Entry) error {
	h := entry.Header()
	record := entryRecord{
		Name:     h.Name,
		Type:     h.Type,
		Size:     h.Size,
		Mode:     fmt.Sprintf("%04o", h.Mode),
		ModTime:  h.ModTime,
		Uname:    h.Uname,
		Gname:    h.Gname,
		Linkname: h.Linkname,
	}
	if r.content && h.Type == protocol.TypeRegular {
		record.Content = entryContent(entry)
	}
	return r.write(record)
}

func (r *recordReporter) Finish(Summary) error {
	return nil
}

// entryContent returns the parsed document for .json and .yaml entries and
// the text view otherwise, including when parsing fails.
func entryContent(entry *untar.Entry) any {
	var (
		v   any
		err error
	)
	switch strings.ToLower(path.Ext(entry.Name())) {
	case ".json":
		v, err = entry.JSON()
	case ".yaml", ".yml":
		v, err = entry.YAML()
	default:
		return entry.Text()
	}
	if err != nil {
		return entry.Text()
	}
	return v
}

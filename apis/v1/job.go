package v1

const ExtractJobKind = "ExtractJob"

type ExtractJob struct {
	Kind     string         `yaml:"kind" json:"kind" validate:"required,eq=ExtractJob"`
	Metadata Metadata       `yaml:"metadata" json:"metadata"`
	Spec     ExtractJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name   string            `yaml:"name" json:"name" validate:"required"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

type ExtractJobSpec struct {
	Source Source  `yaml:"source" json:"source"`
	Worker *Worker `yaml:"worker,omitempty" json:"worker,omitempty"`

	// Filter is a CEL expression evaluated against every entry. Only entries
	// for which it yields true are reported.
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`

	// Timeout in seconds for the whole extraction, source fetch included.
	Timeout *int `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,gt=0"`

	Output *OutputSpec `yaml:"output,omitempty" json:"output,omitempty"`
}

// Source describes where the archive comes from (one of the fields should be set).
type Source struct {
	File  *FileSource  `yaml:"file,omitempty" json:"file,omitempty"`
	Stdin *StdinSource `yaml:"stdin,omitempty" json:"stdin,omitempty"`
	HTTP  *HTTPSource  `yaml:"http,omitempty" json:"http,omitempty"`
	S3    *S3Source    `yaml:"s3,omitempty" json:"s3,omitempty"`
}

type FileSource struct {
	Path string `yaml:"path" json:"path" validate:"required" template:""`
}

// StdinSource reads the archive from standard input (no options currently).
type StdinSource struct{}

type HTTPSource struct {
	URL      string            `yaml:"url" json:"url" validate:"required" template:""`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout  *int              `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,gt=0"`
	Insecure bool              `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

type S3Source struct {
	Bucket          string `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Key             string `yaml:"key" json:"key" validate:"required" template:""`
	Region          string `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty" template:""`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty" template:""`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
}

// Worker selects how entries are decoded (one of the fields should be set).
// Without a worker the in-process decoder is used.
type Worker struct {
	InProcess *InProcessWorker `yaml:"inprocess,omitempty" json:"inprocess,omitempty"`
	Process   *ProcessWorker   `yaml:"process,omitempty" json:"process,omitempty"`
}

// InProcessWorker decodes on a goroutine of the current process (no options currently).
type InProcessWorker struct{}

// ProcessWorker decodes in a child process speaking the worker protocol on
// stdin/stdout. An empty Program runs the current executable's worker command.
type ProcessWorker struct {
	Program    []string          `yaml:"program,omitempty" json:"program,omitempty" template:""`
	Env        map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	WorkingDir string            `yaml:"working_dir,omitempty" json:"working_dir,omitempty" template:""`
}

type OutputSpec struct {
	// Show selects how entries are reported: a table (text), JSON lines or YAML documents.
	Show string `yaml:"show,omitempty" json:"show,omitempty" validate:"omitempty,oneof=text json yaml"`

	// Content includes entry content, as text, in json and yaml reports.
	Content bool `yaml:"content,omitempty" json:"content,omitempty"`
}

package runner

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	v1 "github.com/infracollect/untar/apis/v1"
	"github.com/infracollect/untar/internal/engine"
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParseExtractJob parses a YAML or JSON job file and validates it. It returns
// the job or an error wrapping validator.ValidationErrors when a field is
// invalid.
func ParseExtractJob(data []byte) (v1.ExtractJob, error) {
	var job v1.ExtractJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ExtractJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := ValidateExtractJob(job); err != nil {
		return v1.ExtractJob{}, err
	}

	return job, nil
}

// ValidateExtractJob checks struct constraints and that the job names exactly
// one source and at most one worker type.
func ValidateExtractJob(job v1.ExtractJob) error {
	if err := defaultValidator.Struct(job); err != nil {
		return fmt.Errorf("failed to validate job: %w", err)
	}
	if _, err := ResolveSourceSpec(job.Spec.Source); err != nil {
		return fmt.Errorf("failed to validate job: %w", err)
	}
	if _, err := ResolveWorkerSpec(job.Spec.Worker); err != nil {
		return fmt.Errorf("failed to validate job: %w", err)
	}
	return nil
}

// BuildVariables creates the variables map for template expansion: the
// built-in JOB_* variables plus every allowed environment variable. An
// allowed variable that is not set is an error.
func BuildVariables(job v1.ExtractJob, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(engine.ISO8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

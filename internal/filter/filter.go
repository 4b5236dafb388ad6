// Package filter selects extracted entries with CEL expressions.
//
// An expression sees the entry header through these variables:
//
//	name      string     entry path inside the archive
//	size      int        content size in bytes
//	typeflag  string     type flag ("0" regular file, "5" directory, ...)
//	mode      int        permission and mode bits
//	mtime     timestamp  modification time
//	uname     string     owner user name
//	gname     string     owner group name
//
// For example: `typeflag == "0" && name.endsWith(".json") && size < 1024`.
package filter

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/infracollect/untar/pkg/untar"
)

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("typeflag", cel.StringType),
		cel.Variable("mode", cel.IntType),
		cel.Variable("mtime", cel.TimestampType),
		cel.Variable("uname", cel.StringType),
		cel.Variable("gname", cel.StringType),
	)
}

// Compile parses and type-checks expr. The expression must evaluate to a
// bool.
func Compile(expr string) (*Filter, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}

	return &Filter{expr: expr, program: program}, nil
}

func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against the header of entry.
func (f *Filter) Match(entry *untar.Entry) (bool, error) {
	h := entry.Header()
	out, _, err := f.program.Eval(map[string]any{
		"name":     h.Name,
		"size":     h.Size,
		"typeflag": string(h.Type),
		"mode":     h.Mode,
		"mtime":    h.ModTime,
		"uname":    h.Uname,
		"gname":    h.Gname,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter on %s: %w", h.Name, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, expected bool", f.expr, out.Value())
	}
	return matched, nil
}

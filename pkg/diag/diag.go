// Package diag defines source coordinates and the diagnostic reporter
// consumed by the parser.
package diag

import (
	"fmt"
	"io"
)

// Coord is a source coordinate: file, 1-based line and column.
type Coord struct {
	File   string `yaml:"file,omitempty"`
	Line   int    `yaml:"line"`
	Column int    `yaml:"column"`
}

func (c Coord) String() string {
	if c.File == "" {
		return fmt.Sprintf("%d:%d", c.Line, c.Column)
	}
	return fmt.Sprintf("%s:%d:%d", c.File, c.Line, c.Column)
}

// Diagnostic is a one-line message keyed by a source coordinate.
type Diagnostic struct {
	Coord   Coord  `yaml:"coord"`
	Message string `yaml:"message"`
}

func (d Diagnostic) String() string {
	return d.Coord.String() + ": " + d.Message
}

// Reporter receives formatted errors. Reporting does not unwind; the
// parser restarts at follow tokens on its own.
type Reporter interface {
	Errorf(c Coord, format string, args ...any)
}

// List is a Reporter that collects diagnostics in order.
type List struct {
	Diags []Diagnostic
}

// Errorf records a diagnostic at the given coordinate.
func (l *List) Errorf(c Coord, format string, args ...any) {
	l.Diags = append(l.Diags, Diagnostic{Coord: c, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic was recorded.
func (l *List) HasErrors() bool {
	return len(l.Diags) > 0
}

// Write prints each diagnostic on its own line.
func (l *List) Write(w io.Writer) {
	for _, d := range l.Diags {
		fmt.Fprintln(w, d)
	}
}

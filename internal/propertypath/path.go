// Package propertypath compiles dot/bracket property-path expressions
// into an ordered sequence of navigation steps.
//
// Grammar: a path is a leading field name followed by zero or more
// steps. A step is either "." followed by a field name, or "[" followed
// by a non-negative integer and "]". Field names are sequences of
// characters excluding ".", "[", and "]"; a field name may also be
// written in brackets with double quotes, e.g. ["odd.name"], to embed
// characters the bare form excludes. Whitespace is never permitted.
package propertypath

import (
	"fmt"
	"strconv"
	"strings"
)

// StepKind distinguishes field steps from index steps.
type StepKind int

const (
	// FieldStep navigates into a mapping by key.
	FieldStep StepKind = iota
	// IndexStep navigates into an ordered sequence by position.
	IndexStep
)

// Step is one navigation step of a compiled path.
type Step struct {
	Kind  StepKind
	Field string // mapping key, for FieldStep
	Index int    // non-negative position, for IndexStep
}

// String renders the step in path syntax.
func (s Step) String() string {
	if s.Kind == IndexStep {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	if strings.ContainsAny(s.Field, ".[]") {
		return `["` + s.Field + `"]`
	}
	return s.Field
}

// CompiledPath is an ordered sequence of steps plus the source text it
// was parsed from.
type CompiledPath struct {
	Raw   string
	Steps []Step
}

// String renders the path in canonical syntax.
func (p CompiledPath) String() string {
	var b strings.Builder
	for i, s := range p.Steps {
		if i > 0 && s.Kind == FieldStep && !strings.ContainsAny(s.Field, ".[]") {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Prefix renders the first n steps, used to report where along a path
// an evaluation failure happened.
func (p CompiledPath) Prefix(n int) string {
	if n > len(p.Steps) {
		n = len(p.Steps)
	}
	return CompiledPath{Steps: p.Steps[:n]}.String()
}

// ParseError reports a malformed path expression with the rune position
// of the offending character.
type ParseError struct {
	Path    string
	Column  int // 1-based rune offset into Path
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid path %q at column %d: %s", e.Path, e.Column, e.Message)
}

package propertypath

import (
	"fmt"
	"strconv"
	"unicode"
)

// Parse compiles a property-path string. It is a pure function: no I/O,
// and a malformed path fails here before any object is fetched.
func Parse(path string) (CompiledPath, error) {
	p := &parser{path: path, source: []rune(path)}

	if len(p.source) == 0 {
		return CompiledPath{}, p.errorf(1, "path is empty")
	}

	// The leading step must be a field name, bare or bracket-quoted.
	switch {
	case p.peek() == '[':
		step, err := p.bracketStep()
		if err != nil {
			return CompiledPath{}, err
		}
		if step.Kind != FieldStep {
			return CompiledPath{}, p.errorf(1, "path must begin with a field name")
		}
		p.steps = append(p.steps, step)
	default:
		if err := p.fieldStep(); err != nil {
			return CompiledPath{}, err
		}
	}

	for !p.atEnd() {
		switch r := p.advance(); r {
		case '.':
			if err := p.fieldStep(); err != nil {
				return CompiledPath{}, err
			}
		case '[':
			p.backup()
			step, err := p.bracketStep()
			if err != nil {
				return CompiledPath{}, err
			}
			p.steps = append(p.steps, step)
		default:
			return CompiledPath{}, p.errorf(p.current, "unexpected character %q", r)
		}
	}

	return CompiledPath{Raw: path, Steps: p.steps}, nil
}

type parser struct {
	path    string
	source  []rune
	current int // next rune to consume
	steps   []Step
}

func (p *parser) atEnd() bool { return p.current >= len(p.source) }

func (p *parser) peek() rune {
	if p.atEnd() {
		return 0
	}
	return p.source[p.current]
}

func (p *parser) advance() rune {
	r := p.source[p.current]
	p.current++
	return r
}

func (p *parser) backup() { p.current-- }

// fieldStep consumes a bare field name at the current position.
func (p *parser) fieldStep() error {
	start := p.current
	for !p.atEnd() {
		r := p.peek()
		if r == '.' || r == '[' || r == ']' {
			break
		}
		if unicode.IsSpace(r) {
			return p.errorf(p.current+1, "whitespace is not permitted")
		}
		p.advance()
	}
	if p.current == start {
		return p.errorf(start+1, "expected field name")
	}
	p.steps = append(p.steps, Step{Kind: FieldStep, Field: string(p.source[start:p.current])})
	return nil
}

// bracketStep consumes "[" then either a non-negative integer index or a
// double-quoted field name, then "]".
func (p *parser) bracketStep() (Step, error) {
	open := p.current
	p.advance() // consume '['

	if p.atEnd() {
		return Step{}, p.errorf(open+1, "unmatched '['")
	}

	if p.peek() == '"' {
		return p.quotedField(open)
	}

	start := p.current
	for !p.atEnd() && p.peek() != ']' {
		r := p.advance()
		if !unicode.IsDigit(r) {
			return Step{}, p.errorf(p.current, "index must be a non-negative integer")
		}
	}
	if p.atEnd() {
		return Step{}, p.errorf(open+1, "unmatched '['")
	}
	if p.current == start {
		return Step{}, p.errorf(p.current+1, "index must be a non-negative integer")
	}
	index, err := strconv.Atoi(string(p.source[start:p.current]))
	if err != nil {
		return Step{}, p.errorf(start+1, "index must be a non-negative integer")
	}
	p.advance() // consume ']'

	return Step{Kind: IndexStep, Index: index}, nil
}

// quotedField consumes `"name"]` after an opening bracket. The quoted
// form carries any character except a double quote, so keys containing
// dots or brackets stay addressable.
func (p *parser) quotedField(open int) (Step, error) {
	p.advance() // consume '"'
	start := p.current
	for !p.atEnd() && p.peek() != '"' {
		if unicode.IsSpace(p.peek()) {
			return Step{}, p.errorf(p.current+1, "whitespace is not permitted")
		}
		p.advance()
	}
	if p.atEnd() {
		return Step{}, p.errorf(open+1, "unterminated quoted field")
	}
	if p.current == start {
		return Step{}, p.errorf(start+1, "quoted field name is empty")
	}
	name := string(p.source[start:p.current])
	p.advance() // consume closing '"'
	if p.atEnd() || p.peek() != ']' {
		return Step{}, p.errorf(open+1, "unmatched '['")
	}
	p.advance() // consume ']'

	return Step{Kind: FieldStep, Field: name}, nil
}

func (p *parser) errorf(column int, format string, args ...any) *ParseError {
	return &ParseError{Path: p.path, Column: column, Message: fmt.Sprintf(format, args...)}
}

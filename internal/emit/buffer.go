// Package emit accumulates generated pseudocode as depth-tagged lines and
// renders it once, at the end of a run.
package emit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOutsideProcedure is returned by writes that target the main sequence
// after the first procedure has been opened.
var ErrOutsideProcedure = errors.New("emit: write outside procedure")

// ErrNoOpenProcedure is returned by CloseProcedure when nothing is open.
var ErrNoOpenProcedure = errors.New("emit: no open procedure")

// DefaultIndentWidth is the number of spaces per depth level.
const DefaultIndentWidth = 4

// Line is one statement together with the depth it was written at.
type Line struct {
	Text  string
	Depth int
}

type procedure struct {
	name       string
	returnType string
	lines      []Line
}

// frame is the writer state saved when a procedure or capture is entered.
type frame struct {
	proc  *procedure
	depth int
	sink  *[]Line
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithIndentWidth sets the number of spaces per depth level.
func WithIndentWidth(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.indent = strings.Repeat(" ", n)
		}
	}
}

// Buffer is the output model of a single run. It is not safe for concurrent
// use; every run owns its own Buffer.
type Buffer struct {
	main   []Line
	procs  []*procedure
	byName map[string]*procedure

	methodOnly bool
	cur        *procedure
	depth      int
	sink       *[]Line
	stack      []frame

	indent   string
	err      error
	rendered string
	fresh    bool
}

// NewBuffer creates an empty buffer writing to the main sequence.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		byName: make(map[string]*procedure),
		indent: strings.Repeat(" ", DefaultIndentWidth),
	}
	b.sink = &b.main
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Write appends a line at the current depth.
func (b *Buffer) Write(line string) error {
	if b.methodOnly && b.cur == nil && b.sink == &b.main {
		if b.err == nil {
			b.err = fmt.Errorf("%w: %q", ErrOutsideProcedure, line)
		}
		return ErrOutsideProcedure
	}
	*b.sink = append(*b.sink, Line{Text: line, Depth: b.depth})
	b.fresh = false
	return nil
}

// Writef appends a formatted line at the current depth.
func (b *Buffer) Writef(format string, args ...any) error {
	return b.Write(fmt.Sprintf(format, args...))
}

// Comment appends a `// text` line.
func (b *Buffer) Comment(text string) error {
	return b.Write("// " + text)
}

// Blank appends an empty line.
func (b *Buffer) Blank() error {
	return b.Write("")
}

// Append copies lines into the current sink, preserving their depths.
func (b *Buffer) Append(lines []Line) error {
	for _, l := range lines {
		saved := b.depth
		b.depth = l.Depth
		err := b.Write(l.Text)
		b.depth = saved
		if err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the current depth.
func (b *Buffer) Depth() int { return b.depth }

// Err returns the first write error recorded, if any.
func (b *Buffer) Err() error { return b.err }

// Scope is an indentation guard returned by Indent.
type Scope struct {
	b      *Buffer
	prev   int
	closed bool
}

// Indent increases the depth by one level until the returned scope is closed.
func (b *Buffer) Indent() *Scope {
	s := &Scope{b: b, prev: b.depth}
	b.depth++
	return s
}

// Close restores the depth in effect when the scope was opened. Closing
// twice is a no-op.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.b.depth = s.prev
}

func (b *Buffer) push() {
	b.stack = append(b.stack, frame{proc: b.cur, depth: b.depth, sink: b.sink})
}

func (b *Buffer) pop() {
	n := len(b.stack) - 1
	f := b.stack[n]
	b.stack = b.stack[:n]
	b.cur, b.depth, b.sink = f.proc, f.depth, f.sink
}

// OpenProcedure starts, or reopens, the named procedure. Subsequent writes
// go to its body until CloseProcedure restores the caller's state.
func (b *Buffer) OpenProcedure(name, returnType string) {
	b.push()
	p, ok := b.byName[name]
	if !ok {
		p = &procedure{name: name, returnType: returnType}
		b.byName[name] = p
		b.procs = append(b.procs, p)
	} else if p.returnType == "" {
		p.returnType = returnType
	}
	b.cur = p
	b.sink = &p.lines
	b.depth = 0
	b.methodOnly = true
	b.fresh = false
}

// CloseProcedure ends the innermost open procedure.
func (b *Buffer) CloseProcedure() error {
	if b.cur == nil || len(b.stack) == 0 {
		return ErrNoOpenProcedure
	}
	b.pop()
	return nil
}

// InProcedure reports whether a procedure is currently open.
func (b *Buffer) InProcedure() bool { return b.cur != nil }

// ProcedureCount returns the number of distinct procedures.
func (b *Buffer) ProcedureCount() int { return len(b.procs) }

// procedureLines returns a copy of the named procedure's body.
func (b *Buffer) procedureLines(name string) ([]Line, bool) {
	p, ok := b.byName[name]
	if !ok {
		return nil, false
	}
	return append([]Line(nil), p.lines...), true
}

// Capture diverts writes into a temporary sequence until Lines is called.
type Capture struct {
	b     *Buffer
	lines []Line
	done  bool
}

// Capture starts a temporary capture at the current depth. Procedures opened
// while capturing still write to their own bodies.
func (b *Buffer) Capture() *Capture {
	c := &Capture{b: b}
	b.push()
	b.sink = &c.lines
	return c
}

// Lines ends the capture, on first call, and returns what was written.
func (c *Capture) Lines() []Line {
	if !c.done {
		c.done = true
		c.b.pop()
	}
	return c.lines
}

// Render assembles the final text: the main sequence followed by every
// procedure in first-opened order. The result is memoized until the next
// write.
func (b *Buffer) Render() string {
	if b.fresh {
		return b.rendered
	}
	var sb strings.Builder
	writeLine := func(l Line, extra int) {
		if l.Text != "" {
			sb.WriteString(strings.Repeat(b.indent, l.Depth+extra))
			sb.WriteString(l.Text)
		}
		sb.WriteByte('\n')
	}
	for _, l := range b.main {
		writeLine(l, 0)
	}
	for _, p := range b.procs {
		ret := p.returnType
		if ret == "" {
			ret = "void"
		}
		fmt.Fprintf(&sb, "private %s %s() {\n", ret, p.name)
		for _, l := range p.lines {
			writeLine(l, 1)
		}
		sb.WriteString("}\n\n")
	}
	b.rendered = sb.String()
	b.fresh = true
	return b.rendered
}

// Package debug has helpers producing human readable dumps of book trees.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

// Line writes formatted line at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Text writes label followed by quoted text, empty text is left as is.
func (tw *TreeWriter) Text(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Node writes label with optional list of properties: "label [p1 p2]".
// Empty properties are skipped.
func (tw *TreeWriter) Node(depth int, label string, props ...string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	first := true
	for _, p := range props {
		if p == "" {
			continue
		}
		if first {
			tw.w.WriteString(" [")
			first = false
		} else {
			tw.w.WriteByte(' ')
		}
		tw.w.WriteString(p)
	}
	if !first {
		tw.w.WriteByte(']')
	}
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

package style

import (
	"math"

	"gbook/color"
)

// Epsilon is maximum relative difference for two font sizes to be considered
// equal (machine epsilon of float32).
const Epsilon = 1.1920929e-07

// Approximately compares font sizes using relative difference.
func Approximately(a, b float64) bool {
	if a == b {
		return true
	}
	div := math.Max(math.Abs(a), math.Abs(b))
	if div == 0 {
		return false
	}
	return math.Abs(a-b)/div < Epsilon
}

// Field identifies single style property.
type Field uint8

const (
	FieldBold Field = 1 << iota
	FieldItalics
	FieldUnderline
	FieldStrikethrough
	FieldFontSize
	FieldAlign
	FieldColor

	FieldNone Field = 0
)

// Has reports whether f contains all of fields.
func (f Field) Has(fields Field) bool {
	return f&fields == fields
}

// Resolved is a snapshot of effective style values.
type Resolved struct {
	Bold          bool
	Italics       bool
	Underline     bool
	Strikethrough bool
	FontSize      float64
	Align         Align
	Color         color.RGBA
}

// Defaults returns values used when nothing is set anywhere in the chain.
func Defaults() Resolved {
	return (*Style)(nil).Resolve()
}

// Changed returns set of fields in which r differs from parent. Font sizes
// are compared with Approximately.
func (r Resolved) Changed(parent Resolved) Field {
	var f Field
	if r.Bold != parent.Bold {
		f |= FieldBold
	}
	if r.Italics != parent.Italics {
		f |= FieldItalics
	}
	if r.Underline != parent.Underline {
		f |= FieldUnderline
	}
	if r.Strikethrough != parent.Strikethrough {
		f |= FieldStrikethrough
	}
	if !Approximately(r.FontSize, parent.FontSize) {
		f |= FieldFontSize
	}
	if r.Align != parent.Align {
		f |= FieldAlign
	}
	if r.Color != parent.Color {
		f |= FieldColor
	}
	return f
}

// Equal reports whether r and other have the same effective values.
func (r Resolved) Equal(other Resolved) bool {
	return r.Changed(other) == FieldNone
}

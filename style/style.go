// Package style implements chained formatting properties shared by book
// import and export.
//
// Every Style keeps only values set on it explicitly. Actual (resolved) value
// of a property is taken from the closest style in the parent chain which has
// it set, or from hard defaults when nobody does.
package style

import (
	"gbook/color"
)

// DefaultFontSize is font size (in points) of the book when nothing else is
// specified. Book "fontSize" and element "scale" attributes are relative to it.
const DefaultFontSize = 12.0

// Override is a property value which is either set on a particular style or
// inherited.
type Override[T any] struct {
	value T
	set   bool
}

// Set returns override holding v.
func Set[T any](v T) Override[T] {
	return Override[T]{value: v, set: true}
}

// Get returns override value and whether it was set.
func (o Override[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether value was overridden.
func (o Override[T]) IsSet() bool {
	return o.set
}

// Style is a set of optional property overrides with a link to parent style.
// Parent link is never changed after creation and is only used for lookups,
// so chains are always acyclic.
type Style struct {
	parent *Style

	bold          Override[bool]
	italics       Override[bool]
	underline     Override[bool]
	strikethrough Override[bool]
	fontSize      Override[float64]
	align         Override[Align]
	color         Override[color.RGBA]
}

// New creates empty style inheriting everything from parent (which could be nil).
func New(parent *Style) *Style {
	return &Style{parent: parent}
}

// Derive creates style with parent and a copy of own overrides of src. Nil
// src produces empty style.
func Derive(parent, src *Style) *Style {
	s := New(parent)
	if src != nil {
		s.bold, s.italics = src.bold, src.italics
		s.underline, s.strikethrough = src.underline, src.strikethrough
		s.fontSize, s.align, s.color = src.fontSize, src.align, src.color
	}
	return s
}

// Parent returns style this one inherits from.
func (s *Style) Parent() *Style {
	if s == nil {
		return nil
	}
	return s.parent
}

// Empty reports whether style has no overrides of its own.
func (s *Style) Empty() bool {
	if s == nil {
		return true
	}
	return !(s.bold.set || s.italics.set || s.underline.set || s.strikethrough.set ||
		s.fontSize.set || s.align.set || s.color.set)
}

// Overrides returns set of fields set on the style itself.
func (s *Style) Overrides() Field {
	var f Field
	if s == nil {
		return f
	}
	for _, o := range []struct {
		set   bool
		field Field
	}{
		{s.bold.set, FieldBold},
		{s.italics.set, FieldItalics},
		{s.underline.set, FieldUnderline},
		{s.strikethrough.set, FieldStrikethrough},
		{s.fontSize.set, FieldFontSize},
		{s.align.set, FieldAlign},
		{s.color.set, FieldColor},
	} {
		if o.set {
			f |= o.field
		}
	}
	return f
}

// SetBold overrides bold and returns s.
func (s *Style) SetBold(v bool) *Style { s.bold = Set(v); return s }

// SetItalics overrides italics.
func (s *Style) SetItalics(v bool) *Style { s.italics = Set(v); return s }

// SetUnderline overrides underline.
func (s *Style) SetUnderline(v bool) *Style { s.underline = Set(v); return s }

// SetStrikethrough overrides strikethrough.
func (s *Style) SetStrikethrough(v bool) *Style { s.strikethrough = Set(v); return s }

// SetFontSize overrides font size in points.
func (s *Style) SetFontSize(v float64) *Style { s.fontSize = Set(v); return s }

// SetAlign overrides paragraph alignment.
func (s *Style) SetAlign(v Align) *Style { s.align = Set(v); return s }

// SetColor overrides text color.
func (s *Style) SetColor(v color.RGBA) *Style { s.color = Set(v); return s }

// Bold returns effective bold, false by default.
func (s *Style) Bold() bool {
	return resolve(s, func(s *Style) Override[bool] { return s.bold }, false)
}

// Italics returns effective italics, false by default.
func (s *Style) Italics() bool {
	return resolve(s, func(s *Style) Override[bool] { return s.italics }, false)
}

// Underline returns effective underline, false by default.
func (s *Style) Underline() bool {
	return resolve(s, func(s *Style) Override[bool] { return s.underline }, false)
}

// Strikethrough returns effective strikethrough, false by default.
func (s *Style) Strikethrough() bool {
	return resolve(s, func(s *Style) Override[bool] { return s.strikethrough }, false)
}

// FontSize returns effective font size in points, DefaultFontSize by default.
func (s *Style) FontSize() float64 {
	return resolve(s, func(s *Style) Override[float64] { return s.fontSize }, DefaultFontSize)
}

// Align returns effective alignment, AlignLeft by default.
func (s *Style) Align() Align {
	return resolve(s, func(s *Style) Override[Align] { return s.align }, AlignLeft)
}

// Color returns effective text color, black by default.
func (s *Style) Color() color.RGBA {
	return resolve(s, func(s *Style) Override[color.RGBA] { return s.color }, color.Black)
}

// resolve walks parent chain iteratively, so depth of nesting is not limited
// by stack.
func resolve[T any](s *Style, field func(*Style) Override[T], def T) T {
	for ; s != nil; s = s.parent {
		if v, ok := field(s).Get(); ok {
			return v
		}
	}
	return def
}

// Resolve returns all effective values at once. Nil style resolves to
// defaults.
func (s *Style) Resolve() Resolved {
	return Resolved{
		Bold:          s.Bold(),
		Italics:       s.Italics(),
		Underline:     s.Underline(),
		Strikethrough: s.Strikethrough(),
		FontSize:      s.FontSize(),
		Align:         s.Align(),
		Color:         s.Color(),
	}
}

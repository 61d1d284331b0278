// Package book defines in-memory representation of a book: flat stream of
// blocks delimited by chapter and section break markers, paragraphs and
// inline content with attached styles.
package book

import (
	"errors"

	"gbook/style"
)

// ErrUnsupportedNode is returned by tree walkers which meet block or inline
// kind they do not handle.
var ErrUnsupportedNode = errors.New("unsupported node type")

// DefaultTitle names books which have no title of their own.
const DefaultTitle = "Untitled"

// Document is the root of the book tree.
type Document struct {
	Title string
	// Style is the base style of the whole book, its font size is the book
	// base font size.
	Style *style.Style
	// Blocks is a flat stream of content blocks with ChapterBreak and
	// SectionBreak markers between chapters and sections.
	Blocks []Block
}

// New creates an empty document ready for editing: base style with default
// font size and single empty paragraph.
func New(title string) *Document {
	base := style.New(nil)
	return &Document{
		Title: title,
		Style: base,
		Blocks: []Block{
			&Paragraph{Type: ParagraphTypeNormal, Style: style.New(base)},
		},
	}
}

// BaseFontSize returns resolved font size of the document base style.
func (d *Document) BaseFontSize() float64 {
	return d.Style.FontSize()
}

// Block is one of *Paragraph, *Section, ChapterBreak or SectionBreak.
type Block interface {
	block()
}

// Paragraph is a block of text.
type Paragraph struct {
	Type    ParagraphType
	Style   *style.Style
	Inlines []Inline
}

// Section groups blocks sharing common style.
type Section struct {
	Style  *style.Style
	Blocks []Block
}

// ChapterBreak marks the beginning of a new chapter.
type ChapterBreak struct{}

// SectionBreak marks the beginning of a new section within a chapter.
type SectionBreak struct{}

func (*Paragraph) block()   {}
func (*Section) block()     {}
func (ChapterBreak) block() {}
func (SectionBreak) block() {}

// Inline is one of *Run, *Span or LineBreak.
type Inline interface {
	inline()
}

// Run is a piece of text.
type Run struct {
	Text  string
	Style *style.Style
}

// Span is inline container, spans could be nested.
type Span struct {
	Style   *style.Style
	Inlines []Inline
}

// LineBreak is a forced line break inside paragraph.
type LineBreak struct{}

func (*Run) inline()      {}
func (*Span) inline()     {}
func (LineBreak) inline() {}

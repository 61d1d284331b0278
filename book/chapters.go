package book

import (
	"strings"
	"unicode/utf8"
)

// Chapter is a view of document blocks between two chapter breaks.
type Chapter struct {
	// Sections are produced by splitting chapter content on section breaks,
	// they never have style of their own.
	Sections []*Section
}

// Chapters splits flat block stream into chapters and sections. New chapter
// (and section) is opened on every ChapterBreak, new section on every
// SectionBreak. Result always has at least one chapter with one section.
// Document blocks are shared, not copied.
func (d *Document) Chapters() []Chapter {
	chapters := []Chapter{{Sections: []*Section{{}}}}
	for _, b := range d.Blocks {
		chapter := &chapters[len(chapters)-1]
		switch b.(type) {
		case ChapterBreak:
			chapters = append(chapters, Chapter{Sections: []*Section{{}}})
		case SectionBreak:
			chapter.Sections = append(chapter.Sections, &Section{})
		default:
			section := chapter.Sections[len(chapter.Sections)-1]
			section.Blocks = append(section.Blocks, b)
		}
	}
	return chapters
}

// Stats holds document counters.
type Stats struct {
	Chapters   int
	Sections   int
	Paragraphs int
	Titles     int
	Runs       int
	Characters int
}

// Stats walks the document and counts its content.
func (d *Document) Stats() Stats {
	var st Stats
	for _, ch := range d.Chapters() {
		st.Chapters++
		st.Sections += len(ch.Sections)
	}

	var inlines func([]Inline)
	inlines = func(list []Inline) {
		for _, in := range list {
			switch in := in.(type) {
			case *Run:
				st.Runs++
				st.Characters += utf8.RuneCountInString(in.Text)
			case *Span:
				inlines(in.Inlines)
			}
		}
	}

	var blocks func([]Block)
	blocks = func(list []Block) {
		for _, b := range list {
			switch b := b.(type) {
			case *Paragraph:
				st.Paragraphs++
				if b.Type == ParagraphTypeTitle {
					st.Titles++
				}
				inlines(b.Inlines)
			case *Section:
				blocks(b.Blocks)
			}
		}
	}
	blocks(d.Blocks)
	return st
}

// PlainText returns document text with paragraphs separated by new lines.
// Line breaks inside paragraphs are kept, styles and markers are dropped.
func (d *Document) PlainText() string {
	var buf strings.Builder

	var inlines func([]Inline)
	inlines = func(list []Inline) {
		for _, in := range list {
			switch in := in.(type) {
			case *Run:
				buf.WriteString(in.Text)
			case *Span:
				inlines(in.Inlines)
			case LineBreak:
				buf.WriteByte('\n')
			}
		}
	}

	var blocks func([]Block)
	blocks = func(list []Block) {
		for _, b := range list {
			switch b := b.(type) {
			case *Paragraph:
				if buf.Len() > 0 {
					buf.WriteByte('\n')
				}
				inlines(b.Inlines)
			case *Section:
				blocks(b.Blocks)
			}
		}
	}
	blocks(d.Blocks)
	return buf.String()
}

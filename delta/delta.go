// Package delta converts book documents into Quill editor deltas: flat list
// of insert operations with formatting attributes.
package delta

import (
	"fmt"
	"strconv"
	"strings"

	"gbook/book"
	"gbook/color"
	"gbook/style"
)

// Break attribute values.
const (
	BreakChapter = "chapter"
	BreakSection = "section"
)

// Attributes are Quill formats. Inline formats are set on text operations,
// line formats (Align, Header) on paragraph terminating "\n".
type Attributes struct {
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Strike    bool   `json:"strike,omitempty"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
	Align     string `json:"align,omitempty"`
	Header    int    `json:"header,omitempty"`
	Break     string `json:"break,omitempty"`
}

// Op is a single insert operation.
type Op struct {
	Insert     string      `json:"insert"`
	Attributes *Attributes `json:"attributes,omitempty"`
}

// Delta is a whole document.
type Delta struct {
	Title string `json:"title"`
	Ops   []Op   `json:"ops"`
}

// Text returns concatenated inserts.
func (d *Delta) Text() string {
	var sb strings.Builder
	for _, op := range d.Ops {
		sb.WriteString(op.Insert)
	}
	return sb.String()
}

// FromDocument walks document in order producing operations. Styles are
// resolved from own overrides of every node, the same way exporter does.
func FromDocument(doc *book.Document) (*Delta, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", book.ErrUnsupportedNode)
	}

	d := &Delta{Title: doc.Title}
	base := style.Derive(nil, doc.Style)
	for _, b := range doc.Blocks {
		switch b.(type) {
		case book.ChapterBreak:
			d.Ops = append(d.Ops, Op{Insert: "\n", Attributes: &Attributes{Break: BreakChapter}})
		case book.SectionBreak:
			d.Ops = append(d.Ops, Op{Insert: "\n", Attributes: &Attributes{Break: BreakSection}})
		default:
			if err := d.block(b, base); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func (d *Delta) block(b book.Block, parent *style.Style) error {
	switch b := b.(type) {
	case *book.Section:
		st := style.Derive(parent, b.Style)
		for _, child := range b.Blocks {
			if err := d.block(child, st); err != nil {
				return err
			}
		}
	case *book.Paragraph:
		st := style.Derive(parent, b.Style)
		for _, in := range b.Inlines {
			if err := d.inline(in, st); err != nil {
				return err
			}
		}
		var attrs Attributes
		if al := st.Align(); al != style.AlignLeft {
			attrs.Align = al.String()
		}
		if b.Type == book.ParagraphTypeTitle {
			attrs.Header = 1
		}
		d.Ops = append(d.Ops, Op{Insert: "\n", Attributes: nonEmpty(attrs)})
	default:
		return fmt.Errorf("%w: block %T", book.ErrUnsupportedNode, b)
	}
	return nil
}

func (d *Delta) inline(in book.Inline, parent *style.Style) error {
	switch in := in.(type) {
	case *book.Run:
		if in.Text == "" {
			return nil
		}
		d.Ops = append(d.Ops, Op{Insert: in.Text, Attributes: textAttributes(style.Derive(parent, in.Style).Resolve())})
	case *book.Span:
		st := style.Derive(parent, in.Style)
		for _, child := range in.Inlines {
			if err := d.inline(child, st); err != nil {
				return err
			}
		}
	case book.LineBreak:
		d.Ops = append(d.Ops, Op{Insert: "\n"})
	default:
		return fmt.Errorf("%w: inline %T", book.ErrUnsupportedNode, in)
	}
	return nil
}

func textAttributes(r style.Resolved) *Attributes {
	attrs := Attributes{
		Bold:      r.Bold,
		Italic:    r.Italics,
		Underline: r.Underline,
		Strike:    r.Strikethrough,
	}
	if r.Color != color.Black {
		attrs.Color = CSSColor(r.Color)
	}
	if !style.Approximately(r.FontSize, style.DefaultFontSize) {
		attrs.Size = formatNumber(r.FontSize) + "pt"
	}
	return nonEmpty(attrs)
}

func nonEmpty(attrs Attributes) *Attributes {
	if attrs == (Attributes{}) {
		return nil
	}
	return &attrs
}

// CSSColor formats color as "rgb(r,g,b)" or "rgba(r,g,b,a)" with alpha in
// 0..1 range.
func CSSColor(c color.RGBA) string {
	if c.Opaque() {
		return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, formatNumber(float64(c.A)/255))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}

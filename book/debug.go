package book

import (
	"fmt"
	"strconv"

	"gbook/style"
	"gbook/utils/debug"
)

type treeWriter struct {
	*debug.TreeWriter
}

// String returns a readable tree of the document with own style overrides of
// every node. It exists solely for manual inspection during debugging.
func (d *Document) String() string {
	if d == nil {
		return "<nil Document>"
	}
	tw := treeWriter{debug.NewTreeWriter()}
	tw.Node(0, "Book", "title="+strconv.Quote(d.Title), fmt.Sprintf("base=%gpt", d.BaseFontSize()))
	tw.blocks(1, d.Blocks)
	return tw.String()
}

func (tw treeWriter) blocks(depth int, blocks []Block) {
	for _, b := range blocks {
		switch b := b.(type) {
		case ChapterBreak:
			tw.Line(depth, "-- chapter break --")
		case SectionBreak:
			tw.Line(depth, "-- section break --")
		case *Section:
			tw.Node(depth, "Section", overrides(b.Style)...)
			tw.blocks(depth+1, b.Blocks)
		case *Paragraph:
			tw.Node(depth, "Paragraph", append([]string{b.Type.String()}, overrides(b.Style)...)...)
			tw.inlines(depth+1, b.Inlines)
		default:
			tw.Line(depth, "<unknown block %T>", b)
		}
	}
}

func (tw treeWriter) inlines(depth int, inlines []Inline) {
	for _, in := range inlines {
		switch in := in.(type) {
		case *Run:
			if props := overrides(in.Style); len(props) > 0 {
				tw.Node(depth, "Run", props...)
				tw.Text(depth+1, "text", in.Text)
				continue
			}
			tw.Text(depth, "Run", in.Text)
		case *Span:
			tw.Node(depth, "Span", overrides(in.Style)...)
			tw.inlines(depth+1, in.Inlines)
		case LineBreak:
			tw.Line(depth, "LineBreak")
		default:
			tw.Line(depth, "<unknown inline %T>", in)
		}
	}
}

// overrides lists only values set on the style itself.
func overrides(s *style.Style) []string {
	set := s.Overrides()
	if set == style.FieldNone {
		return nil
	}
	// detached copy resolves to own values
	own := style.Derive(nil, s).Resolve()
	var props []string
	flag := func(name string, f style.Field, v bool) {
		if set.Has(f) {
			props = append(props, fmt.Sprintf("%s=%t", name, v))
		}
	}
	flag("bold", style.FieldBold, own.Bold)
	flag("italics", style.FieldItalics, own.Italics)
	flag("underline", style.FieldUnderline, own.Underline)
	flag("strikethrough", style.FieldStrikethrough, own.Strikethrough)
	if set.Has(style.FieldFontSize) {
		props = append(props, fmt.Sprintf("size=%g", own.FontSize))
	}
	if set.Has(style.FieldAlign) {
		props = append(props, "align="+own.Align.String())
	}
	if set.Has(style.FieldColor) {
		props = append(props, "color="+own.Color.String())
	}
	return props
}

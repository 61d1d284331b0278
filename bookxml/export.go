package bookxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"gbook/book"
	"gbook/style"
)

// ExportOption changes exporter behavior.
type ExportOption func(*exporter)

// WithIndent sets number of spaces per nesting level, 0 produces single line
// output.
func WithIndent(spaces int) ExportOption {
	return func(x *exporter) {
		if spaces >= 0 {
			x.indent = spaces
		}
	}
}

type exporter struct {
	indent int
}

// Export serializes document into book XML text. When document has no title
// fallbackTitle is used.
func Export(doc *book.Document, fallbackTitle string, opts ...ExportOption) (string, error) {
	out, err := ExportDocument(doc, fallbackTitle, opts...)
	if err != nil {
		return "", err
	}
	return out.WriteToString()
}

// ExportDocument builds XML tree for document. Document is not modified.
func ExportDocument(doc *book.Document, fallbackTitle string, opts ...ExportOption) (*etree.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrUnsupportedNode)
	}

	x := &exporter{indent: 2}
	for _, opt := range opts {
		opt(x)
	}

	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	out.CreateText("\n")

	root, err := x.book(doc, fallbackTitle)
	if err != nil {
		return nil, err
	}
	out.AddChild(root)
	if x.indent > 0 {
		indent(root, 0, strings.Repeat(" ", x.indent))
	}
	out.CreateText("\n")
	return out, nil
}

func (x *exporter) book(doc *book.Document, fallbackTitle string) (*etree.Element, error) {
	root := etree.NewElement("book")

	title := doc.Title
	if title == "" {
		title = fallbackTitle
	}
	root.CreateAttr("title", title)

	// styles are rebuilt from own overrides of every node, parent links kept
	// in the tree are never followed
	base := style.Derive(nil, doc.Style)
	baseFontSize := base.FontSize()
	if !style.Approximately(baseFontSize, style.DefaultFontSize) {
		root.CreateAttr("fontSize", formatNumber(baseFontSize/style.DefaultFontSize))
	}
	// book element carries only font size, the rest of base style goes to
	// every section
	bookDefaults := style.New(nil).SetFontSize(baseFontSize).Resolve()

	chapter := root.CreateElement("chapter")
	var run []book.Block
	flush := func() error {
		section := chapter.CreateElement("section")
		err := x.topSection(section, run, base, bookDefaults)
		run = nil
		return err
	}

	for _, b := range doc.Blocks {
		switch b.(type) {
		case book.ChapterBreak:
			if err := flush(); err != nil {
				return nil, err
			}
			chapter = root.CreateElement("chapter")
		case book.SectionBreak:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			run = append(run, b)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return root, nil
}

// topSection fills section element with blocks found between two breaks.
// Single styled section takes the place of the element itself.
func (x *exporter) topSection(el *etree.Element, blocks []book.Block, base *style.Style, bookDefaults style.Resolved) error {
	st := base
	if len(blocks) == 1 {
		if sec, ok := blocks[0].(*book.Section); ok {
			st = style.Derive(base, sec.Style)
			blocks = sec.Blocks
		}
	}
	applyModified(el, st.Resolve(), bookDefaults)
	for _, b := range blocks {
		if err := x.block(el, b, st); err != nil {
			return err
		}
	}
	return nil
}

// block exports b under parent.
func (x *exporter) block(parentEl *etree.Element, b book.Block, parent *style.Style) error {
	own, _ := blockStyle(b)
	return x.styledBlock(parentEl, b, style.Derive(parent, own), parent)
}

// styledBlock exports b with its effective style st, attributes are written
// for fields where st differs from parent.
func (x *exporter) styledBlock(parentEl *etree.Element, b book.Block, st, parent *style.Style) error {
	switch b := b.(type) {
	case *book.Paragraph:
		return x.paragraph(parentEl, b, st, parent)
	case *book.Section:
		return x.section(parentEl, b, st, parent)
	case book.ChapterBreak, book.SectionBreak:
		return fmt.Errorf("%w: %T inside section", ErrUnsupportedNode, b)
	default:
		return fmt.Errorf("%w: block %T", ErrUnsupportedNode, b)
	}
}

func (x *exporter) section(parentEl *etree.Element, sec *book.Section, st, parent *style.Style) error {
	if len(sec.Blocks) == 1 {
		child := sec.Blocks[0]
		if own, ok := blockStyle(child); ok {
			merged := style.Derive(st, own)
			if merged.Resolve().Equal(st.Resolve()) {
				// child carries everything section does, wrapper is redundant
				return x.styledBlock(parentEl, child, merged, parent)
			}
		}
	}

	group := parentEl.CreateElement("group")
	applyModified(group, st.Resolve(), parent.Resolve())
	for _, b := range sec.Blocks {
		if err := x.block(group, b, st); err != nil {
			return err
		}
	}
	return nil
}

func (x *exporter) paragraph(parentEl *etree.Element, p *book.Paragraph, st, parent *style.Style) error {
	var tag string
	switch p.Type {
	case book.ParagraphTypeNormal:
		tag = "p"
	case book.ParagraphTypeTitle:
		tag = "title"
	default:
		return fmt.Errorf("%w: paragraph type %s", ErrUnsupportedNode, p.Type)
	}

	el := parentEl.CreateElement(tag)

	if len(p.Inlines) == 1 {
		if run, ok := p.Inlines[0].(*book.Run); ok {
			// single run is hoisted into paragraph element
			applyModified(el, style.Derive(st, run.Style).Resolve(), parent.Resolve())
			el.CreateText(run.Text)
			return nil
		}
	}

	applyModified(el, st.Resolve(), parent.Resolve())
	for _, in := range p.Inlines {
		if err := x.inline(el, in, st); err != nil {
			return err
		}
	}
	return nil
}

func (x *exporter) inline(parentEl *etree.Element, in book.Inline, parent *style.Style) error {
	switch in := in.(type) {
	case *book.Run:
		resolved := style.Derive(parent, in.Style).Resolve()
		if resolved.Changed(parent.Resolve()) == style.FieldNone {
			parentEl.CreateText(in.Text)
			return nil
		}
		span := parentEl.CreateElement("span")
		applyModified(span, resolved, parent.Resolve())
		span.CreateText(in.Text)
	case *book.Span:
		st := style.Derive(parent, in.Style)
		span := parentEl.CreateElement("span")
		applyModified(span, st.Resolve(), parent.Resolve())
		for _, child := range in.Inlines {
			if err := x.inline(span, child, st); err != nil {
				return err
			}
		}
	case book.LineBreak:
		parentEl.CreateElement("br")
	default:
		return fmt.Errorf("%w: inline %T", ErrUnsupportedNode, in)
	}
	return nil
}

// blockStyle returns own style of content block.
func blockStyle(b book.Block) (*style.Style, bool) {
	switch b := b.(type) {
	case *book.Paragraph:
		return b.Style, true
	case *book.Section:
		return b.Style, true
	}
	return nil, false
}

// applyModified sets attributes for every field in which cur differs from
// parent.
func applyModified(el *etree.Element, cur, parent style.Resolved) {
	changed := cur.Changed(parent)
	if changed.Has(style.FieldFontSize) {
		el.CreateAttr("scale", formatNumber(cur.FontSize/parent.FontSize))
	}
	if changed.Has(style.FieldBold) {
		el.CreateAttr("bold", strconv.FormatBool(cur.Bold))
	}
	if changed.Has(style.FieldItalics) {
		el.CreateAttr("italics", strconv.FormatBool(cur.Italics))
	}
	if changed.Has(style.FieldUnderline) {
		el.CreateAttr("underline", strconv.FormatBool(cur.Underline))
	}
	if changed.Has(style.FieldStrikethrough) {
		el.CreateAttr("strikethrough", strconv.FormatBool(cur.Strikethrough))
	}
	if changed.Has(style.FieldAlign) {
		el.CreateAttr("align", cur.Align.String())
	}
	if changed.Has(style.FieldColor) {
		el.CreateAttr("color", cur.Color.String())
	}
}

// formatNumber uses shortest float32 representation, so ratios computed from
// scaled sizes do not leak float64 noise into files.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}

// indent puts every child element on its own line. Elements with text
// content are left as is, inserting whitespace there would change text.
func indent(el *etree.Element, depth int, unit string) {
	if len(el.Child) == 0 {
		return
	}
	for _, c := range el.Child {
		if _, ok := c.(*etree.CharData); ok {
			return
		}
	}

	children := make([]etree.Token, len(el.Child))
	copy(children, el.Child)
	for _, c := range children {
		el.RemoveChild(c)
	}
	for _, c := range children {
		el.CreateText("\n" + strings.Repeat(unit, depth+1))
		el.AddChild(c)
		if ce, ok := c.(*etree.Element); ok {
			indent(ce, depth+1, unit)
		}
	}
	el.CreateText("\n" + strings.Repeat(unit, depth))
}

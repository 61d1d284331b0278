// Package bookxml converts between book XML files and book.Document trees.
//
// Import is lenient to structure: unknown tags, misplaced text and legacy
// elements are reported as warnings and skipped. Malformed attribute values
// stop import with an error unless WithLenientAttributes is used. Export
// emits only attributes which differ from inherited values.
package bookxml

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"gbook/book"
	"gbook/color"
	"gbook/style"
)

// Result holds imported document and accumulated diagnostics. When Errors is
// not empty Document is nil.
type Result struct {
	Document *book.Document
	Warnings []string
	Errors   []string
}

// OK reports whether document was loaded, possibly with warnings.
func (r *Result) OK() bool {
	return r != nil && r.Document != nil && len(r.Errors) == 0
}

// Option changes importer behavior.
type Option func(*importer)

// WithLenientAttributes makes malformed attribute values (colors, alignment,
// numbers) warnings instead of errors. Such attributes are ignored.
func WithLenientAttributes(lenient bool) Option {
	return func(im *importer) {
		im.lenient = lenient
	}
}

// WithLogger sets logger for diagnostics, by default nothing is logged.
func WithLogger(log *zap.Logger) Option {
	return func(im *importer) {
		if log != nil {
			im.log = log
		}
	}
}

type importer struct {
	log     *zap.Logger
	lenient bool
	res     *Result
}

func newImporter(opts []Option) *importer {
	im := &importer{log: zap.NewNop(), res: &Result{}}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import parses already decoded book XML text. Encoding in XML declaration
// is ignored. Returned error indicates malformed XML or malformed attribute
// value, structural problems are reported in Result.
func Import(text string, opts ...Option) (*Result, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: func(_ string, input io.Reader) (io.Reader, error) {
			return input, nil
		},
	}
	if err := doc.ReadFromString(Normalize(text)); err != nil {
		return nil, fmt.Errorf("unable to parse book XML: %w", err)
	}
	return newImporter(opts).run(doc)
}

// ImportBytes parses raw book file content honoring encoding specified in
// XML declaration.
func ImportBytes(data []byte, opts ...Option) (*Result, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
	}
	if err := doc.ReadFromBytes(reInterTagSpace.ReplaceAll(data, []byte("><"))); err != nil {
		return nil, fmt.Errorf("unable to parse book XML: %w", err)
	}
	return newImporter(opts).run(doc)
}

func (im *importer) run(doc *etree.Document) (*Result, error) {
	root := doc.Root()
	if root == nil {
		im.fail("Invalid root element")
		return im.res, nil
	}
	if root.FullTag() != "book" {
		im.fail("Invalid root element: " + root.FullTag())
		return im.res, nil
	}

	d, err := im.book(root, "/"+root.Tag)
	if err != nil {
		return nil, err
	}
	im.res.Document = d
	return im.res, nil
}

func (im *importer) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	im.log.Debug("Book import", zap.String("warning", msg))
	im.res.Warnings = append(im.res.Warnings, msg)
}

func (im *importer) fail(msg string) {
	im.log.Debug("Book import", zap.String("error", msg))
	im.res.Errors = append(im.res.Errors, msg)
}

func (im *importer) unrecognized(el *etree.Element, path string) {
	im.warn("Tag '%s' is not recognized and will be ignored. At: %s", el.FullTag(), path)
}

func (im *importer) unexpectedText(path string) {
	im.warn("Text content found in unexpected location. At: %s", path)
}

// badAttr either fails or reports and skips malformed attribute value.
func (im *importer) badAttr(a etree.Attr, path string, err error) error {
	if !im.lenient {
		return fmt.Errorf("attribute '%s' at %s: %w", a.FullKey(), path, err)
	}
	im.warn("Attribute '%s' has invalid value '%s' and will be ignored. At: %s", a.FullKey(), a.Value, path)
	return nil
}

func (im *importer) unknownAttr(a etree.Attr, path string) {
	if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
		return
	}
	im.warn("Attribute '%s' is not recognized and will be ignored. At: %s", a.FullKey(), path)
}

func (im *importer) book(root *etree.Element, path string) (*book.Document, error) {
	base := style.New(nil)
	doc := &book.Document{Style: base}

	for _, a := range root.Attr {
		switch a.FullKey() {
		case "title":
			doc.Title = a.Value
		case "fontSize":
			v, err := parseNumber(a.Value)
			if err != nil {
				if err := im.badAttr(a, path, err); err != nil {
					return nil, err
				}
				continue
			}
			base.SetFontSize(style.DefaultFontSize * v)
		default:
			im.unknownAttr(a, path)
		}
	}

	chapters := 0
	for _, token := range root.Child {
		switch t := token.(type) {
		case *etree.CharData:
			im.unexpectedText(path)
		case *etree.Element:
			switch t.FullTag() {
			case "chapter":
				if chapters > 0 {
					doc.Blocks = append(doc.Blocks, book.ChapterBreak{})
				}
				chapters++
				blocks, err := im.chapter(t, base, path+"/"+t.Tag)
				if err != nil {
					return nil, err
				}
				doc.Blocks = append(doc.Blocks, blocks...)
			default:
				im.unrecognized(t, path)
			}
		}
	}
	return doc, nil
}

func (im *importer) chapter(el *etree.Element, parent *style.Style, path string) ([]book.Block, error) {
	for _, a := range el.Attr {
		im.unknownAttr(a, path)
	}

	var blocks []book.Block
	sections := 0
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.CharData:
			im.unexpectedText(path)
		case *etree.Element:
			switch t.FullTag() {
			case "page":
				im.warn("Legacy tag 'page' will be converted into a section. At: %s", path)
				fallthrough
			case "section":
				if sections > 0 {
					blocks = append(blocks, book.SectionBreak{})
				}
				sections++
				sec, err := im.section(t, parent, path+"/"+t.Tag)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, sec...)
			default:
				im.unrecognized(t, path)
			}
		}
	}
	return blocks, nil
}

// section returns section content. Section with style of its own is kept as
// a single styled *book.Section block.
func (im *importer) section(el *etree.Element, parent *style.Style, path string) ([]book.Block, error) {
	st, err := im.styleFrom(el, parent, path)
	if err != nil {
		return nil, err
	}
	blocks, err := im.blocks(el, st, path)
	if err != nil {
		return nil, err
	}
	if st.Empty() {
		return blocks, nil
	}
	return []book.Block{&book.Section{Style: st, Blocks: blocks}}, nil
}

// blocks handles content of section and group elements.
func (im *importer) blocks(el *etree.Element, parent *style.Style, path string) ([]book.Block, error) {
	var blocks []book.Block
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.CharData:
			im.unexpectedText(path)
		case *etree.Element:
			elPath := path + "/" + t.Tag
			switch t.FullTag() {
			case "p", "title":
				p, err := im.paragraph(t, parent, elPath)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, p)
			case "group":
				st, err := im.styleFrom(t, parent, elPath)
				if err != nil {
					return nil, err
				}
				children, err := im.blocks(t, st, elPath)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, &book.Section{Style: st, Blocks: children})
			default:
				im.unrecognized(t, path)
			}
		}
	}
	return blocks, nil
}

func (im *importer) paragraph(el *etree.Element, parent *style.Style, path string) (*book.Paragraph, error) {
	st, err := im.styleFrom(el, parent, path)
	if err != nil {
		return nil, err
	}
	p := &book.Paragraph{Type: book.ParagraphTypeNormal, Style: st}
	if el.FullTag() == "title" {
		p.Type = book.ParagraphTypeTitle
	}
	if p.Inlines, err = im.inlines(el, st, path); err != nil {
		return nil, err
	}
	return p, nil
}

func (im *importer) inlines(el *etree.Element, parent *style.Style, path string) ([]book.Inline, error) {
	var inlines []book.Inline
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.CharData:
			inlines = append(inlines, &book.Run{Text: t.Data, Style: style.New(parent)})
		case *etree.Element:
			elPath := path + "/" + t.Tag
			switch t.FullTag() {
			case "span":
				st, err := im.styleFrom(t, parent, elPath)
				if err != nil {
					return nil, err
				}
				children, err := im.inlines(t, st, elPath)
				if err != nil {
					return nil, err
				}
				inlines = append(inlines, &book.Span{Style: st, Inlines: children})
			case "br":
				inlines = append(inlines, book.LineBreak{})
			default:
				im.unrecognized(t, path)
			}
		}
	}
	return inlines, nil
}

// styleFrom creates style inheriting from parent with overrides taken from
// element attributes.
func (im *importer) styleFrom(el *etree.Element, parent *style.Style, path string) (*style.Style, error) {
	st := style.New(parent)
	for _, a := range el.Attr {
		known, err := applyAttr(st, a)
		if err != nil {
			if err := im.badAttr(a, path, err); err != nil {
				return nil, err
			}
			continue
		}
		if !known {
			im.unknownAttr(a, path)
		}
	}
	return st, nil
}

func applyAttr(st *style.Style, a etree.Attr) (bool, error) {
	switch a.FullKey() {
	case "bold":
		st.SetBold(a.Value == "true")
	case "italics":
		st.SetItalics(a.Value == "true")
	case "underline":
		st.SetUnderline(a.Value == "true")
	case "strikethrough":
		st.SetStrikethrough(a.Value == "true")
	case "scale":
		v, err := parseNumber(a.Value)
		if err != nil {
			return true, err
		}
		st.SetFontSize(st.Parent().FontSize() * v)
	case "align":
		al, err := style.ParseAlign(a.Value)
		if err != nil {
			return true, err
		}
		st.SetAlign(al)
	case "color":
		c, err := color.Parse(a.Value, true)
		if err != nil {
			return true, err
		}
		st.SetColor(c)
	default:
		return false, nil
	}
	return true, nil
}

// parseNumber accepts positive finite numbers.
func parseNumber(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, text)
	}
	return v, nil
}

package delta

import (
	"encoding/json"
	"errors"
	"testing"

	"gbook/book"
	"gbook/color"
	"gbook/style"
)

func TestFromDocument(t *testing.T) {
	base := style.New(nil)
	title := &book.Paragraph{Type: book.ParagraphTypeTitle, Style: style.New(base).SetAlign(style.AlignCenter)}
	title.Inlines = []book.Inline{&book.Run{Text: "Title"}}

	body := &book.Paragraph{Style: style.New(base)}
	body.Inlines = []book.Inline{
		&book.Run{Text: "plain"},
		&book.Span{Style: style.New(body.Style).SetBold(true).SetFontSize(18), Inlines: []book.Inline{
			&book.Run{Text: "big", Style: style.New(nil).SetColor(color.RGBA{R: 255, A: 255})},
			book.LineBreak{},
		}},
	}

	doc := &book.Document{
		Title:  "Delta",
		Style:  base,
		Blocks: []book.Block{title, book.SectionBreak{}, body, book.ChapterBreak{}},
	}

	d, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}

	want := []Op{
		{Insert: "Title"},
		{Insert: "\n", Attributes: &Attributes{Align: "center", Header: 1}},
		{Insert: "\n", Attributes: &Attributes{Break: BreakSection}},
		{Insert: "plain"},
		{Insert: "big", Attributes: &Attributes{Bold: true, Color: "rgb(255,0,0)", Size: "18pt"}},
		{Insert: "\n"},
		{Insert: "\n"},
		{Insert: "\n", Attributes: &Attributes{Break: BreakChapter}},
	}

	if d.Title != "Delta" {
		t.Errorf("title = %q", d.Title)
	}
	if len(d.Ops) != len(want) {
		t.Fatalf("got %d ops, want %d: %+v", len(d.Ops), len(want), d.Ops)
	}
	for i := range want {
		got, exp := d.Ops[i], want[i]
		if got.Insert != exp.Insert {
			t.Errorf("op %d insert = %q, want %q", i, got.Insert, exp.Insert)
		}
		if (got.Attributes == nil) != (exp.Attributes == nil) {
			t.Errorf("op %d attributes = %+v, want %+v", i, got.Attributes, exp.Attributes)
			continue
		}
		if got.Attributes != nil && *got.Attributes != *exp.Attributes {
			t.Errorf("op %d attributes = %+v, want %+v", i, *got.Attributes, *exp.Attributes)
		}
	}

	if got := d.Text(); got != "Title\n\nplainbig\n\n\n" {
		t.Errorf("Text() = %q", got)
	}
}

func TestJSON(t *testing.T) {
	d, err := FromDocument(book.New("New"))
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `{"title":"New","ops":[{"insert":"\n"}]}`; got != want {
		t.Fatalf("json = %s, want %s", got, want)
	}
}

func TestCSSColor(t *testing.T) {
	tests := []struct {
		in   color.RGBA
		want string
	}{
		{color.RGBA{R: 1, G: 2, B: 3, A: 255}, "rgb(1,2,3)"},
		{color.RGBA{R: 255, A: 0}, "rgba(255,0,0,0)"},
		{color.RGBA{B: 255, A: 51}, "rgba(0,0,255,0.2)"},
	}
	for _, tt := range tests {
		if got := CSSColor(tt.in); got != tt.want {
			t.Errorf("CSSColor(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type strayBlock struct {
	*book.Section
}

func TestFromDocumentUnsupported(t *testing.T) {
	doc := &book.Document{Blocks: []book.Block{strayBlock{&book.Section{}}}}
	if _, err := FromDocument(doc); !errors.Is(err, book.ErrUnsupportedNode) {
		t.Fatalf("expected ErrUnsupportedNode, got %v", err)
	}
}

package debug

import (
	"testing"
)

func TestNewTreeWriter(t *testing.T) {
	tw := NewTreeWriter()
	if tw == nil {
		t.Fatal("NewTreeWriter() returned nil")
	}
	if tw.String() != "" {
		t.Error("Expected empty string from new TreeWriter")
	}
}

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "book", nil, "book\n"},
		{"depth 1", 1, "chapter", nil, "  chapter\n"},
		{"depth 3", 3, "paragraph", nil, "      paragraph\n"},
		{"with formatting", 1, "chapter[%d]", []any{2}, "  chapter[2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Text(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value string
		want  string
	}{
		{"empty value", 0, "run", "", "run: \n"},
		{"with value", 1, "run", "hello world", "  run: \"hello world\"\n"},
		{"quotes", 0, "run", `say "hi"`, "run: \"say \\\"hi\\\"\"\n"},
		{"newline", 2, "run", "a\nb", "    run: \"a\\nb\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Text(tt.depth, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_Node(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		props []string
		want  string
	}{
		{"no props", 0, "span", nil, "span\n"},
		{"empty props skipped", 1, "span", []string{"", ""}, "  span\n"},
		{"props", 0, "p", []string{"bold", "", "align=center"}, "p [bold align=center]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Node(tt.depth, tt.label, tt.props...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Node() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_MultipleOperations(t *testing.T) {
	tw := NewTreeWriter()
	tw.Line(0, "Book")
	tw.Node(1, "Paragraph", "title")
	tw.Text(2, "Run", "value")
	tw.Line(1, "ChapterBreak")

	want := "Book\n  Paragraph [title]\n    Run: \"value\"\n  ChapterBreak\n"
	if got := tw.String(); got != want {
		t.Errorf("Multiple operations:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

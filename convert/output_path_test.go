package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"gbook/book"
	"gbook/config"
	"gbook/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs bool, transliterate bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Book.FileNameTransliterate = transliterate
	cfg.Book.OutputNameTemplate = template

	return &state.LocalEnv{
		Log:    logger,
		Cfg:    cfg,
		NoDirs: noDirs,
	}
}

func TestBuildOutputPath(t *testing.T) {
	tests := []struct {
		name          string
		src           string
		noDirs        bool
		transliterate bool
		template      string
		kind          outputKind
		expected      string
	}{
		{"no dirs", "books/author/book.xml", true, false, "", outputXML, filepath.Join("/output", "book.xml")},
		{"with dirs", "books/author/book.xml", false, false, "", outputXML, filepath.Join("/output", "books", "author", "book.xml")},
		{"delta", "book.xml", true, false, "", outputDelta, filepath.Join("/output", "book.json")},
		{"transliterate", "Книга.xml", true, true, "", outputXML, filepath.Join("/output", "kniga.xml")},
		{"template", "book.xml", true, false, "{{ .Title }}", outputXML, filepath.Join("/output", "Test Book.xml")},
		{"template with dirs", "a/book.xml", false, false, "{{ .Format }}/{{ .SourceFile }}", outputDelta, filepath.Join("/output", "a", "delta", "book.json")},
		{"template expands to nothing", "book.xml", true, false, "{{ if false }}x{{ end }}", outputXML, filepath.Join("/output", "book.xml")},
		{"template escaping", "book.xml", true, false, "..", outputXML, filepath.Join("/output", "book.xml")},
		{"broken template", "book.xml", true, false, "{{ .Title ", outputXML, filepath.Join("/output", "book.xml")},
	}

	doc := book.New("Test Book")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.noDirs, tt.transliterate, tt.template)

			if got := buildOutputPath(doc, tt.src, "/output", tt.kind, env); got != tt.expected {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetermineOutputDir(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "")
	if got := determineOutputDir("books/author/book.xml", "/output", env); got != "/output" {
		t.Errorf("determineOutputDir() = %q, want /output", got)
	}

	env.NoDirs = false
	if got, want := determineOutputDir("books/author/book.xml", "/output", env), filepath.Join("/output", "books", "author"); got != want {
		t.Errorf("determineOutputDir() = %q, want %q", got, want)
	}
}

func TestBuildDefaultFileName(t *testing.T) {
	tests := []struct {
		name          string
		src           string
		transliterate bool
		kind          outputKind
		expected      string
	}{
		{"simple", "book.xml", false, outputXML, "book.xml"},
		{"with path", "path/to/book.xml", false, outputXML, "book.xml"},
		{"delta", "book.xml", false, outputDelta, "book.json"},
		{"transliterate", "Книга.xml", true, outputXML, "kniga.xml"},
		{"hidden", ".book.xml", false, outputXML, "book.xml"},
		{"nothing left", "...xml", false, outputXML, config.BadFileName + ".xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, tt.transliterate, "")

			if got := buildDefaultFileName(tt.src, tt.kind, env); got != tt.expected {
				t.Errorf("buildDefaultFileName() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{"simple path", filepath.Join("author", "book"), []string{"author", "book"}},
		{"single segment", "book", []string{"book"}},
		{"with trailing separator", filepath.Join("author", "book") + string(filepath.Separator), []string{"author", "book"}},
		{"escaping", filepath.Join("..", "..", "book"), []string{"book"}},
		{"absolute", string(filepath.Separator) + "book", []string{"book"}},
		{"empty path", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitPath(tt.path)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitPath() = %q, want %q", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitPath()[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestCleanPathSegment(t *testing.T) {
	tests := []struct {
		name          string
		segment       string
		transliterate bool
		expected      string
	}{
		{"simple segment", "author", false, "author"},
		{"with spaces", "My Book", false, "My Book"},
		{"transliterate cyrillic", "Автор", true, "avtor"},
		{"separator", "book/name", false, "bookname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, tt.transliterate, "")

			if got := cleanPathSegment(tt.segment, env); got != tt.expected {
				t.Errorf("cleanPathSegment() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOutputKind(t *testing.T) {
	if outputXML.String() != "xml" || outputXML.ext() != ".xml" {
		t.Errorf("xml kind = %s %s", outputXML, outputXML.ext())
	}
	if outputDelta.String() != "delta" || outputDelta.ext() != ".json" {
		t.Errorf("delta kind = %s %s", outputDelta, outputDelta.ext())
	}
}

package convert

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"gbook/bookxml"
	"gbook/config"
	"gbook/delta"
	"gbook/state"
)

const brokenBook = `<?xml version="1.0" encoding="utf-8"?>
<book><chapter><section><p color="nocolor">x</p></section></chapter></book>
`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, data := range files {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			t.Fatalf("Failed to create %s in zip: %v", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("Failed to write %s to zip: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

// collect returns bookFunc remembering names of visited books.
func collect(names *[]string) bookFunc {
	return func(_ context.Context, b bookSource) error {
		*names = append(*names, filepath.ToSlash(b.name))
		return nil
	}
}

func TestProcess_NonExistentPath(t *testing.T) {
	ctx, env := setupTestEnv(t)

	err := process(ctx, "/nonexistent/path/file.xml", collect(new([]string)), env.Log)
	if err == nil {
		t.Fatal("Expected error for non-existent path, got nil")
	}
	if !strings.Contains(err.Error(), "input source was not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, env := setupTestEnv(t)
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	err := process(cancelCtx, t.TempDir(), collect(new([]string)), env.Log)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "book10.xml"), []byte(sampleBook))
	writeFile(t, filepath.Join(dir, "book2.xml"), []byte(sampleBook))
	writeFile(t, filepath.Join(dir, "sub", "book1.xml"), encodeSample(t, []byte(sampleBook), encUTF16LittleEndian))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("text"))
	writeFile(t, filepath.Join(dir, "other.xml"), []byte("<html/>"))
	writeZip(t, filepath.Join(dir, "arc.zip"), map[string][]byte{"in/zbook.xml": []byte(sampleBook)})

	var names []string
	if err := process(ctx, dir, collect(&names), env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	want := "in/zbook.xml,book2.xml,book10.xml,sub/book1.xml"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("visited = %s, want %s", got, want)
	}
}

func TestProcess_DirectoryWithTail(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := filepath.Join(t.TempDir(), "subdir")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := process(ctx, filepath.Join(dir, "nonexistent.xml"), collect(new([]string)), env.Log); err == nil {
		t.Fatal("Expected error for directory with tail, got nil")
	}
}

func TestProcess_SingleFile(t *testing.T) {
	ctx, env := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "book.xml")
	writeFile(t, path, []byte(sampleBook))

	var names []string
	if err := process(ctx, path, collect(&names), env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if len(names) != 1 || names[0] != "book.xml" {
		t.Errorf("visited = %v", names)
	}
}

func TestProcess_NonBookFile(t *testing.T) {
	ctx, env := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "page.xml")
	writeFile(t, path, []byte("<html/>"))

	err := process(ctx, path, collect(new([]string)), env.Log)
	if err == nil || !strings.Contains(err.Error(), "not recognized as a book") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "books.zip")
	writeZip(t, path, map[string][]byte{
		"a/one.xml":   []byte(sampleBook),
		"a/two.xml":   encodeSample(t, []byte(sampleBook), encUTF8),
		"b/three.xml": []byte(sampleBook),
		"readme.txt":  []byte("text"),
	})

	t.Run("whole archive", func(t *testing.T) {
		var names []string
		if err := process(ctx, path, collect(&names), env.Log); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		if got := strings.Join(names, ","); got != "a/one.xml,a/two.xml,b/three.xml" {
			t.Errorf("visited = %s", got)
		}
	})

	t.Run("path inside archive", func(t *testing.T) {
		var names []string
		if err := process(ctx, filepath.Join(path, "b"), collect(&names), env.Log); err != nil {
			t.Fatalf("process() error = %v", err)
		}
		if got := strings.Join(names, ","); got != "b/three.xml" {
			t.Errorf("visited = %s", got)
		}
	})
}

func TestProcess_ErrorsCollected(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.xml"), []byte(sampleBook))
	writeFile(t, filepath.Join(dir, "b.xml"), []byte(sampleBook))
	writeFile(t, filepath.Join(dir, "c.xml"), []byte(sampleBook))

	visited := 0
	err := process(ctx, dir, func(_ context.Context, b bookSource) error {
		visited++
		if b.name == "c.xml" {
			return nil
		}
		return errors.New("failed " + b.name)
	}, env.Log)

	if visited != 3 {
		t.Errorf("all books must be visited, got %d", visited)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected 2 errors, got %d: %v", n, err)
	}
}

func TestLoadBook(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		enc       srcEncoding
		lenient   bool
		wantTitle string
		wantErr   string
	}{
		{"plain", []byte(sampleBook), encUnknown, false, "Sample", ""},
		{"utf-16", encodeSample(t, []byte(`<?xml version="1.0" encoding="utf-16"?><book title="Sample"/>`), encUTF16BigEndian), encUTF16BigEndian, false, "Sample", ""},
		{"malformed xml", []byte("<book><chapter></book>"), encUnknown, false, "", "unable to load book"},
		{"invalid root", []byte("<books/>"), encUnknown, false, "", "Invalid root element: books"},
		{"bad attribute", []byte(brokenBook), encUnknown, false, "", "invalid color format"},
		{"bad attribute lenient", []byte(brokenBook), encUnknown, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, env := setupTestEnv(t)
			env.Lenient = tt.lenient

			b := bookSource{r: selectReader(strings.NewReader(string(tt.data)), tt.enc), enc: tt.enc, name: "book.xml"}
			doc, err := loadBook(ctx, b, env.Log)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("loadBook() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadBook() error = %v", err)
			}
			if doc.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", doc.Title, tt.wantTitle)
			}
		})
	}
}

func TestLoadBook_StoresFailed(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()

	rpt, err := (&config.ReporterConfig{Destination: filepath.Join(dir, "report.zip")}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt

	path := filepath.Join(dir, "bad.xml")
	writeFile(t, path, []byte(brokenBook))
	if err := process(ctx, path, func(ctx context.Context, b bookSource) error {
		_, err := loadBook(ctx, b, env.Log)
		return err
	}, env.Log); err == nil {
		t.Fatal("expected error")
	}

	// books from archives have no file on disk
	b := bookSource{r: strings.NewReader("<book><bad"), name: "inner.xml"}
	if _, err := loadBook(ctx, b, env.Log); err == nil {
		t.Fatal("expected error")
	}

	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	zr, err := zip.OpenReader(rpt.Name())
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	found := map[string]bool{}
	for _, f := range zr.File {
		found[f.Name] = true
	}
	if !found["failed/bad.xml"] || !found["failed/inner.xml"] {
		t.Errorf("failed books are missing from report: %v", found)
	}
}

func TestProcessBook(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dst := t.TempDir()

	source := func() bookSource {
		return bookSource{r: strings.NewReader(sampleBook), name: filepath.Join("dir", "sample.xml")}
	}

	if err := processBook(ctx, source(), dst, outputXML, env.Log); err != nil {
		t.Fatalf("processBook() error = %v", err)
	}
	out := filepath.Join(dst, "dir", "sample.xml")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(data) != sampleBook {
		t.Errorf("formatted output differs from canonical input:\n%s", data)
	}

	if err := processBook(ctx, source(), dst, outputXML, env.Log); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected existing output error, got %v", err)
	}

	env.Overwrite = true
	if err := processBook(ctx, source(), dst, outputXML, env.Log); err != nil {
		t.Errorf("processBook() with overwrite error = %v", err)
	}

	if err := processBook(ctx, source(), dst, outputDelta, env.Log); err != nil {
		t.Fatalf("processBook() delta error = %v", err)
	}
	data, err = os.ReadFile(filepath.Join(dst, "dir", "sample.json"))
	if err != nil {
		t.Fatalf("delta output not written: %v", err)
	}
	var d delta.Delta
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("delta output is not valid json: %v", err)
	}
	if d.Title != "Sample" || d.Text() != "Chapter One\nFirst paragraph.\n" {
		t.Errorf("unexpected delta: %q %q", d.Title, d.Text())
	}
}

func runAction(ctx context.Context, action cli.ActionFunc, args ...string) error {
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "overwrite"},
			&cli.BoolFlag{Name: "nodirs"},
			&cli.BoolFlag{Name: "lenient"},
			&cli.StringFlag{Name: "force-zip-cp"},
		},
		Action: action,
	}
	return cmd.Run(ctx, append([]string{"test"}, args...))
}

func TestCheck(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.xml")
	bad := filepath.Join(dir, "bad.xml")
	writeFile(t, good, []byte(sampleBook))
	writeFile(t, bad, []byte(brokenBook))

	if err := runAction(ctx, Check, good); err != nil {
		t.Errorf("Check() on valid book error = %v", err)
	}
	if err := runAction(ctx, Check, good, bad); err == nil {
		t.Error("Check() on invalid book should fail")
	}
	if err := runAction(ctx, Check, "--lenient", bad); err != nil {
		t.Errorf("Check() lenient error = %v", err)
	}
	if err := runAction(ctx, Check); err == nil {
		t.Error("Check() without sources should fail")
	}
}

func TestFormatAndDelta(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "nested", "sample.xml"), []byte(sampleBook))

	if err := runAction(ctx, Format, "--nodirs", src, dst); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "sample.xml")); err != nil {
		t.Errorf("formatted book not found: %v", err)
	}

	if err := runAction(ctx, Delta, src, dst); err != nil {
		t.Fatalf("Delta() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "nested", "sample.json")); err != nil {
		t.Errorf("delta not found: %v", err)
	}

	if err := runAction(ctx, Format); err == nil {
		t.Error("Format() without source should fail")
	}
}

func TestNew(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dst := t.TempDir()

	if err := runAction(ctx, New, "My Book", dst); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "My Book.xml"))
	if err != nil {
		t.Fatalf("new book not written: %v", err)
	}
	res, err := bookxml.Import(string(data))
	if err != nil || !res.OK() {
		t.Fatalf("new book cannot be loaded: %v %v", err, res)
	}
	if res.Document.Title != "My Book" {
		t.Errorf("title = %q", res.Document.Title)
	}

	if err := runAction(ctx, New, "My Book", dst); err == nil {
		t.Error("New() must not overwrite existing book")
	}
	if err := runAction(ctx, New, "--overwrite", "My Book", dst); err != nil {
		t.Errorf("New() with overwrite error = %v", err)
	}

	if err := runAction(ctx, New, "", dst); err != nil {
		t.Fatalf("New() without title error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, env.DefaultTitle()+".xml")); err != nil {
		t.Errorf("book with default title not found: %v", err)
	}
}

package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"gbook/book"
	"gbook/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Format     string
	SourceFile string
	Chapters   int
	Sections   int
	Paragraphs int
	Characters int
}

func expandTemplate(doc *book.Document, src string, name config.TemplateFieldName, field string, kind outputKind) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	stats := doc.Stats()
	values := Values{
		Context:    string(name),
		Title:      doc.Title,
		Format:     kind.String(),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Chapters:   stats.Chapters,
		Sections:   stats.Sections,
		Paragraphs: stats.Paragraphs,
		Characters: stats.Characters,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

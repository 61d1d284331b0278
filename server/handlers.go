package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"gbook/book"
	"gbook/bookxml"
	"gbook/delta"
	"gbook/text"
)

type statsResponse struct {
	Chapters   int `json:"chapters"`
	Sections   int `json:"sections"`
	Paragraphs int `json:"paragraphs"`
	Titles     int `json:"titles"`
	Runs       int `json:"runs"`
	Characters int `json:"characters"`
	Sentences  int `json:"sentences"`
	Words      int `json:"words"`
}

type checkResponse struct {
	OK       bool           `json:"ok"`
	Title    string         `json:"title,omitempty"`
	Warnings []string       `json:"warnings"`
	Errors   []string       `json:"errors"`
	Stats    *statsResponse `json:"stats,omitempty"`
}

func newCheckResponse(res *bookxml.Result, splitter *text.Splitter) *checkResponse {
	resp := &checkResponse{
		OK:       res.OK(),
		Warnings: res.Warnings,
		Errors:   res.Errors,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if res.Document != nil {
		st := res.Document.Stats()
		counts := splitter.Count(res.Document.PlainText())
		resp.Title = res.Document.Title
		resp.Stats = &statsResponse{
			Chapters:   st.Chapters,
			Sections:   st.Sections,
			Paragraphs: st.Paragraphs,
			Titles:     st.Titles,
			Runs:       st.Runs,
			Characters: st.Characters,
			Sentences:  counts.Sentences,
			Words:      counts.Words,
		}
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	res, ok := s.importBook(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCheckResponse(res, s.splitter))
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	res, ok := s.loadBook(w, r)
	if !ok {
		return
	}
	out, err := bookxml.Export(res.Document, s.fallbackTitle(r), s.env.ExportOptions()...)
	if err != nil {
		s.log.Error("Unable to export book", zap.Error(err))
		jsonError(w, "unable to export book: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	io.WriteString(w, out)
}

func (s *Server) handleDelta(w http.ResponseWriter, r *http.Request) {
	res, ok := s.loadBook(w, r)
	if !ok {
		return
	}
	d, err := delta.FromDocument(res.Document)
	if err != nil {
		s.log.Error("Unable to convert book", zap.Error(err))
		jsonError(w, "unable to convert book: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(d.Title) == 0 {
		d.Title = s.fallbackTitle(r)
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	title := s.fallbackTitle(r)
	out, err := bookxml.Export(book.New(title), title, s.env.ExportOptions()...)
	if err != nil {
		jsonError(w, "unable to prepare new book: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	io.WriteString(w, out)
}

// loadBook imports request body and requires document to be usable. When
// it is not, diagnostics are returned to the client.
func (s *Server) loadBook(w http.ResponseWriter, r *http.Request) (*bookxml.Result, bool) {
	res, ok := s.importBook(w, r)
	if !ok {
		return nil, false
	}
	if !res.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, newCheckResponse(res, s.splitter))
		return nil, false
	}
	return res, true
}

func (s *Server) importBook(w http.ResponseWriter, r *http.Request) (*bookxml.Result, bool) {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("book exceeds max size (%d bytes)", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "unable to read request body", http.StatusBadRequest)
		return nil, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		jsonError(w, "empty request body", http.StatusBadRequest)
		return nil, false
	}

	res, err := importData(data, s.env.ImportOptions())
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}
	if len(res.Errors) > 0 || len(res.Warnings) > 0 {
		s.log.Debug("Book diagnostics",
			zap.String("errors", bookxml.Summarize("Errors", res.Errors, s.env.DiagnosticsLimit())),
			zap.String("warnings", bookxml.Summarize("Warnings", res.Warnings, s.env.DiagnosticsLimit())))
	}
	return res, true
}

// importData honors byte order mark when present, otherwise encoding from
// XML declaration is used.
func importData(data []byte, opts []bookxml.Option) (*bookxml.Result, error) {
	if !hasBOM(data) {
		return bookxml.ImportBytes(data, opts...)
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode book: %w", err)
	}
	return bookxml.Import(string(decoded), opts...)
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

func (s *Server) fallbackTitle(r *http.Request) string {
	if title := strings.TrimSpace(r.URL.Query().Get("title")); len(title) > 0 {
		return title
	}
	return s.env.DefaultTitle()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

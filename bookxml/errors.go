package bookxml

import (
	"errors"
	"fmt"
	"strings"

	"gbook/book"
)

var (
	// ErrInvalidNumber is returned for malformed "fontSize" and "scale" values.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrUnsupportedNode means document tree has node exporter does not
	// know about. Tree built by importer or book package never has one.
	ErrUnsupportedNode = book.ErrUnsupportedNode
)

// Headers used by Summarize callers when presenting import diagnostics.
const (
	ErrorsHeader   = "The following errors were encountered while loading the file:"
	WarningsHeader = "The following warnings were encountered while loading the file:"

	DefaultDiagnosticsLimit = 10
)

// Summarize formats capped list of diagnostics: header, up to limit items one
// per line and "And N more..." when some were left out. Non-positive limit
// means no cap. Empty list produces empty string.
func Summarize(header string, items []string, limit int) string {
	if len(items) == 0 {
		return ""
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	var sb strings.Builder
	if header != "" {
		sb.WriteString(header)
		sb.WriteByte('\n')
	}
	for _, item := range items[:limit] {
		sb.WriteString(item)
		sb.WriteByte('\n')
	}
	if len(items) > limit {
		fmt.Fprintf(&sb, "And %d more...\n", len(items)-limit)
	}
	return sb.String()
}

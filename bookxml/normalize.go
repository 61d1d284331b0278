package bookxml

import (
	"regexp"
)

var reInterTagSpace = regexp.MustCompile(`>\s+<`)

// Normalize removes whitespace between adjacent tags, so indentation of
// pretty printed files does not turn into text runs. Whitespace-only text
// between two inline elements is removed as well.
func Normalize(text string) string {
	return reInterTagSpace.ReplaceAllString(text, "><")
}

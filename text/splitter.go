// Package text splits plain book text into sentences and words.
package text

import (
	"iter"
	"strings"
	"sync"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Splitter is English sentence tokenizer. Nil splitter treats every input as
// a single sentence.
type Splitter struct {
	mu  sync.Mutex
	tok *sentences.DefaultSentenceTokenizer
}

// NewSplitter loads tokenizer training data.
func NewSplitter() (*Splitter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &Splitter{tok: tok}, nil
}

// Split returns sentences of in. Whitespace between sentences stays with the
// preceding sentence, so joined result is equal to in.
func (s *Splitter) Split(in string) []string {
	if s == nil {
		return []string{in}
	}

	s.mu.Lock()
	tokens := s.tok.Tokenize(in)
	s.mu.Unlock()

	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		result = append(result, t.Text)
	}
	// tokenizer attaches trailing spaces to the next sentence
	for i := range len(result) - 1 {
		for idx, sym := range result[i+1] {
			if !unicode.IsSpace(sym) {
				result[i] += result[i+1][:idx]
				result[i+1] = result[i+1][idx:]
				break
			}
		}
	}
	return result
}

// Words returns an iterator over non-empty words of in. NBSP does not
// separate words.
func Words(in string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for w := range strings.FieldsFuncSeq(in, isSeparator) {
			if !yield(w) {
				return
			}
		}
	}
}

func isSeparator(r rune) bool {
	if uint32(r) <= unicode.MaxLatin1 {
		switch r {
		case '\t', '\n', '\v', '\f', '\r', ' ', 0x85:
			return true
		}
		return false
	}
	return unicode.IsSpace(r)
}

// Counts is sentence and word statistics.
type Counts struct {
	Sentences int
	Words     int
}

// Count processes text line by line: sentences never span lines, which
// matches paragraphs and line breaks of the book.
func (s *Splitter) Count(in string) Counts {
	var c Counts
	for line := range strings.Lines(in) {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		c.Sentences += len(s.Split(line))
		for range Words(line) {
			c.Words++
		}
	}
	return c
}

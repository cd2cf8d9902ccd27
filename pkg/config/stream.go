package config

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// LineStream reads an input source one line at a time. Every line is
// lowercased on read and exposes a cursor that parse operations advance.
type LineStream struct {
	r    *bufio.Reader
	fold bool

	line string
	pos  int
	n    int
	eof  bool
	err  error
}

// NewLineStream returns a stream positioned before the first line.
func NewLineStream(r io.Reader) *LineStream {
	return &LineStream{r: bufio.NewReader(r), fold: true}
}

// newValueStream wraps a single value text without changing its case.
func newValueStream(text string) *LineStream {
	s := &LineStream{r: bufio.NewReader(strings.NewReader(text))}
	s.Next()
	return s
}

// Next discards the current line and reads the next one. It returns false
// at end of input or on a read error.
func (s *LineStream) Next() bool {
	if s.eof {
		return false
	}

	text, err := s.r.ReadString('\n')
	if err != nil && err != io.EOF {
		s.err = err
	}
	if err != nil && text == "" {
		s.eof = true
		s.line, s.pos = "", 0
		return false
	}

	text = strings.TrimRight(text, "\r\n")
	if s.fold {
		text = strings.ToLower(text)
	}
	s.line, s.pos = text, 0
	s.n++
	return true
}

// EOF reports whether the stream is past the last line.
func (s *LineStream) EOF() bool {
	return s.eof
}

// Err returns the first read error other than io.EOF.
func (s *LineStream) Err() error {
	return s.err
}

// LineNumber is the 1-based number of the current line.
func (s *LineStream) LineNumber() int {
	return s.n
}

// Line returns the whole current line.
func (s *LineStream) Line() string {
	return s.line
}

// Rest returns the unconsumed part of the current line.
func (s *LineStream) Rest() string {
	return s.line[s.pos:]
}

// SkipSpace advances the cursor past whitespace.
func (s *LineStream) SkipSpace() {
	for s.pos < len(s.line) && isSpace(s.line[s.pos]) {
		s.pos++
	}
}

// AtEnd reports whether only whitespace remains on the current line.
func (s *LineStream) AtEnd() bool {
	return strings.TrimSpace(s.Rest()) == ""
}

// HasPrefix reports whether the unconsumed text starts with p.
func (s *LineStream) HasPrefix(p string) bool {
	return strings.HasPrefix(s.Rest(), p)
}

// Keyword consumes word when it appears as a whole token at the cursor.
func (s *LineStream) Keyword(word string) bool {
	s.SkipSpace()
	if !s.HasPrefix(word) {
		return false
	}
	end := s.pos + len(word)
	if end < len(s.line) && !isSpace(s.line[end]) {
		return false
	}
	s.pos = end
	return true
}

// Token consumes the next whitespace-delimited token.
func (s *LineStream) Token() (string, bool) {
	s.SkipSpace()
	start := s.pos
	for s.pos < len(s.line) && !isSpace(s.line[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return "", false
	}
	return s.line[start:s.pos], true
}

// String consumes a double-quoted string or, failing that, a bare token.
// Quoted strings keep their internal whitespace.
func (s *LineStream) String() (string, bool) {
	s.SkipSpace()
	if !s.HasPrefix(`"`) {
		return s.Token()
	}

	end := strings.IndexByte(s.line[s.pos+1:], '"')
	if end < 0 {
		return "", false
	}
	value := s.line[s.pos+1 : s.pos+1+end]
	s.pos += end + 2
	return value, true
}

// Int consumes a decimal integer token.
func (s *LineStream) Int() (int, bool) {
	save := s.pos
	tok, ok := s.Token()
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		s.pos = save
		return 0, false
	}
	return v, true
}

// Float consumes a floating-point token.
func (s *LineStream) Float() (float64, bool) {
	save := s.pos
	tok, ok := s.Token()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		s.pos = save
		return 0, false
	}
	return v, true
}

func isSpace(b byte) bool {
	return b < unicode.MaxASCII && unicode.IsSpace(rune(b))
}

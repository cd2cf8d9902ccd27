package config

import (
	"strings"
	"testing"
)

func TestLineStream(t *testing.T) {
	s := NewLineStream(strings.NewReader("First LINE\n\n  \"Quoted Name\" 12 3.5\nlast"))

	if !s.Next() || s.Line() != "first line" {
		t.Fatalf("Expected lowercased first line, got %q", s.Line())
	}
	if !s.Keyword("first") || s.Rest() != " line" {
		t.Errorf("Expected keyword to consume 'first', rest %q", s.Rest())
	}
	if s.Keyword("lin") {
		t.Errorf("Expected partial keyword not to match")
	}

	if !s.Next() || !s.AtEnd() {
		t.Errorf("Expected blank second line, got %q", s.Line())
	}

	s.Next()
	name, ok := s.String()
	if !ok || name != "quoted name" {
		t.Errorf("Expected quoted string, got %q", name)
	}
	if v, ok := s.Int(); !ok || v != 12 {
		t.Errorf("Expected 12, got %d", v)
	}
	if _, ok := s.Int(); ok {
		t.Errorf("Expected 3.5 not to parse as an integer")
	}
	if v, ok := s.Float(); !ok || v != 3.5 {
		t.Errorf("Expected 3.5 after failed integer read, got %g", v)
	}

	if !s.Next() || s.Line() != "last" || s.LineNumber() != 4 {
		t.Errorf("Expected unterminated last line 4, got %q at %d", s.Line(), s.LineNumber())
	}
	if s.Next() || !s.EOF() {
		t.Errorf("Expected end of input")
	}
	if s.Next() {
		t.Errorf("Expected end of input to be sticky")
	}
}

func TestLineStreamEmpty(t *testing.T) {
	s := NewLineStream(strings.NewReader(""))
	if s.Next() || !s.EOF() {
		t.Errorf("Expected empty input to reach end immediately")
	}
	if s.Err() != nil {
		t.Errorf("Expected no read error, got %v", s.Err())
	}
}

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// ParseOption customizes parsing.
type ParseOption func(*parseSettings)

type parseSettings struct {
	defaults map[string]string
}

// WithDefault replaces the compiled-in default text of option name. The
// replacement goes through the option's own parser and validator.
func WithDefault(name, text string) ParseOption {
	return func(s *parseSettings) {
		if s.defaults == nil {
			s.defaults = make(map[string]string)
		}
		s.defaults[name] = text
	}
}

// Defaults returns a configuration holding every option's default value
// and no fragments.
func Defaults(opts ...ParseOption) (*Config, error) {
	var settings parseSettings
	for _, o := range opts {
		o(&settings)
	}
	for name := range settings.defaults {
		if _, ok := LookupOption(name); !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrBadDefault, ErrUnknownOption, name)
		}
	}

	cfg := &Config{}
	for _, opt := range registry {
		text := opt.Default
		if v, ok := settings.defaults[opt.Name]; ok {
			text = v
		}
		if err := apply(opt, newValueStream(text), cfg); err != nil {
			return nil, fmt.Errorf("%w: %s %q: %w", ErrBadDefault, opt.Name, text, err)
		}
	}
	return cfg, nil
}

// apply runs the parser and validator of opt on the text at the cursor,
// which must hold nothing else.
func apply(opt Option, s *LineStream, cfg *Config) error {
	s.SkipSpace()
	if !opt.kind.parse(s, cfg) {
		return ErrIncorrectValue
	}
	if !opt.kind.check(cfg) {
		return ErrOutOfRange
	}
	if !s.AtEnd() {
		return ErrOnePerLine
	}
	return nil
}

// Set parses text as the value of option name, as if it appeared on an
// input line.
func (c *Config) Set(name, text string) error {
	opt, ok := LookupOption(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	s := NewLineStream(strings.NewReader(text))
	s.Next()
	if err := apply(opt, s, c); err != nil {
		return &ParseError{Option: name, Err: err}
	}
	return nil
}

// ParseFile parses the input file at path.
func ParseFile(path string, opts ...ParseOption) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a simulation input. Options not present in the input keep
// their defaults. At least one fragment is required.
func Parse(r io.Reader, opts ...ParseOption) (*Config, error) {
	cfg, err := Defaults(opts...)
	if err != nil {
		return nil, err
	}

	p := &parser{
		s:    NewLineStream(r),
		cfg:  cfg,
		seen: make(map[string]bool),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type parser struct {
	s    *LineStream
	cfg  *Config
	seen map[string]bool
}

func (p *parser) run() error {
	p.s.Next()
	for !p.s.EOF() {
		if err := p.directive(); err != nil {
			return err
		}
	}
	if err := p.s.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if len(p.cfg.Fragments) == 0 {
		return ErrNoFragments
	}
	return nil
}

// directive consumes one logical record and leaves the stream on the first
// line it did not use.
func (p *parser) directive() error {
	s := p.s
	s.SkipSpace()

	switch {
	case s.AtEnd(), s.HasPrefix("#"):
		s.Next()
		return nil
	case s.Keyword("fragment"):
		return p.fragment()
	}

	if err := p.option(); err != nil {
		return err
	}
	s.Next()
	return nil
}

func (p *parser) option() error {
	s := p.s
	name, _ := s.Token()

	opt, ok := LookupOption(name)
	if !ok {
		return p.errorf(name, ErrUnknownOption)
	}
	if p.seen[name] {
		return p.errorf(name, ErrDuplicateOption)
	}
	if opt.geometry && len(p.cfg.Fragments) > 0 {
		return p.errorf(name, ErrOptionAfterFragment)
	}
	if err := apply(opt, s, p.cfg); err != nil {
		return p.errorf(name, err)
	}

	p.seen[name] = true
	return nil
}

func (p *parser) fragment() error {
	s := p.s

	name, ok := s.String()
	if !ok || name == "" || !s.AtEnd() {
		return p.errorf("", ErrFragmentName)
	}
	frag := Fragment{Name: name}

	ct := p.cfg.CoordType
	lines := 1
	if ct == potential.CoordPoints {
		lines = 3
	}
	perLine := ct.Size() / lines

	for l := 0; l < lines; l++ {
		if !s.Next() {
			return p.errorf("", ErrFragmentCoords)
		}
		values, ok := readFloats(s, perLine)
		if !ok {
			return p.errorf("", ErrFragmentCoords)
		}
		frag.Coord = append(frag.Coord, values...)
	}

	p.cfg.toBohr(frag.Coord)

	s.Next()
	if !s.EOF() && s.Keyword("velocity") {
		if !s.AtEnd() || !s.Next() {
			return p.errorf("", ErrFragmentVelocities)
		}
		values, ok := readFloats(s, 6)
		if !ok {
			return p.errorf("", ErrFragmentVelocities)
		}
		frag.Velocity = values
		s.Next()
	}

	p.cfg.Fragments = append(p.cfg.Fragments, frag)
	return nil
}

// readFloats reads exactly n numbers making up the rest of the line.
func readFloats(s *LineStream, n int) ([]float64, bool) {
	values := make([]float64, n)
	for i := range values {
		v, ok := s.Float()
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, s.AtEnd()
}

func (p *parser) errorf(option string, err error) error {
	return &ParseError{Line: p.s.LineNumber(), Option: option, Err: err}
}

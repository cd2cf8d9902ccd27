package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// Option describes one recognized input keyword.
type Option struct {
	Name    string
	Default string
	Usage   string
	kind    valueKind

	// geometry options fix how fragment blocks are read and may not
	// follow the first fragment
	geometry bool
}

// Choices lists the accepted keywords of an enumerated option, or nil
// when the option takes free-form text.
func (o Option) Choices() []string {
	return o.kind.choices()
}

// MultiChoice reports whether the option takes a set of keywords.
func (o Option) MultiChoice() bool {
	_, ok := o.kind.(termsKind)
	return ok
}

// valueKind parses, validates and formats one kind of option value.
type valueKind interface {
	parse(s *LineStream, c *Config) bool
	check(c *Config) bool
	format(c *Config) string
	choices() []string
}

type stringKind struct {
	field func(*Config) *string
}

func (k stringKind) parse(s *LineStream, c *Config) bool {
	v, ok := s.String()
	if !ok {
		return false
	}
	*k.field(c) = v
	return true
}

func (k stringKind) check(*Config) bool { return true }

func (k stringKind) format(c *Config) string {
	return QuoteName(*k.field(c))
}

func (k stringKind) choices() []string { return nil }

type intKind struct {
	field func(*Config) *int
	valid func(int) bool
}

func (k intKind) parse(s *LineStream, c *Config) bool {
	v, ok := s.Int()
	if !ok {
		return false
	}
	*k.field(c) = v
	return true
}

func (k intKind) check(c *Config) bool {
	return k.valid == nil || k.valid(*k.field(c))
}

func (k intKind) format(c *Config) string {
	return strconv.Itoa(*k.field(c))
}

func (k intKind) choices() []string { return nil }

type floatKind struct {
	field func(*Config) *float64
	valid func(float64) bool
}

func (k floatKind) parse(s *LineStream, c *Config) bool {
	v, ok := s.Float()
	if !ok {
		return false
	}
	*k.field(c) = v
	return true
}

func (k floatKind) check(c *Config) bool {
	return k.valid == nil || k.valid(*k.field(c))
}

func (k floatKind) format(c *Config) string {
	return formatFloat(*k.field(c))
}

func (k floatKind) choices() []string { return nil }

type boolKind struct {
	field func(*Config) *bool
}

func (k boolKind) parse(s *LineStream, c *Config) bool {
	tok, ok := s.Token()
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(tok)
	if err != nil {
		return false
	}
	*k.field(c) = v
	return true
}

func (k boolKind) check(*Config) bool { return true }

func (k boolKind) format(c *Config) string {
	return strconv.FormatBool(*k.field(c))
}

func (k boolKind) choices() []string { return []string{"true", "false"} }

type choice[T comparable] struct {
	word  string
	value T
}

type enumKind[T comparable] struct {
	field  func(*Config) *T
	values []choice[T]
}

func (k enumKind[T]) parse(s *LineStream, c *Config) bool {
	tok, ok := s.Token()
	if !ok {
		return false
	}
	for _, ch := range k.values {
		if ch.word == tok {
			*k.field(c) = ch.value
			return true
		}
	}
	return false
}

func (k enumKind[T]) check(*Config) bool { return true }

func (k enumKind[T]) format(c *Config) string {
	v := *k.field(c)
	for _, ch := range k.values {
		if ch.value == v {
			return ch.word
		}
	}
	return ""
}

func (k enumKind[T]) choices() []string {
	words := make([]string, len(k.values))
	for i, ch := range k.values {
		words[i] = ch.word
	}
	return words
}

var termWords = []choice[potential.Terms]{
	{"elec", potential.TermElec},
	{"pol", potential.TermPol},
	{"disp", potential.TermDisp},
	{"xr", potential.TermXR},
}

// termsKind reads a whitespace-separated set of term keywords up to the end
// of the line.
type termsKind struct {
	field func(*Config) *potential.Terms
}

func (k termsKind) parse(s *LineStream, c *Config) bool {
	var set potential.Terms
	for {
		tok, ok := s.Token()
		if !ok {
			break
		}
		found := false
		for _, ch := range termWords {
			if ch.word == tok {
				set |= ch.value
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if set == 0 {
		return false
	}
	*k.field(c) = set
	return true
}

func (k termsKind) check(*Config) bool { return true }

func (k termsKind) format(c *Config) string {
	set := *k.field(c)
	var words []string
	for _, ch := range termWords {
		if set.Has(ch.value) {
			words = append(words, ch.word)
		}
	}
	return strings.Join(words, " ")
}

func (k termsKind) choices() []string {
	return enumKind[potential.Terms]{values: termWords}.choices()
}

type vectorKind struct {
	field func(*Config) *[3]float64
	valid func(float64) bool
}

func (k vectorKind) parse(s *LineStream, c *Config) bool {
	var v [3]float64
	for i := range v {
		x, ok := s.Float()
		if !ok {
			return false
		}
		v[i] = x
	}
	*k.field(c) = v
	return true
}

func (k vectorKind) check(c *Config) bool {
	if k.valid == nil {
		return true
	}
	for _, x := range *k.field(c) {
		if !k.valid(x) {
			return false
		}
	}
	return true
}

func (k vectorKind) format(c *Config) string {
	v := *k.field(c)
	return fmt.Sprintf("%s %s %s", formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
}

func (k vectorKind) choices() []string { return nil }

func positive(v float64) bool { return v > 0 }

func positiveInt(v int) bool { return v > 0 }

// DefaultFraglibPath is the compiled-in location of the fragment library.
const DefaultFraglibPath = "/usr/local/share/fragmd/fraglib"

var registry = []Option{
	{
		Name: "run_type", Default: "sp",
		Usage: "simulation to perform",
		kind: enumKind[RunType]{
			field: func(c *Config) *RunType { return &c.RunType },
			values: []choice[RunType]{
				{"sp", RunSinglePoint},
				{"grad", RunGradient},
				{"hess", RunHessian},
				{"opt", RunOptimize},
				{"md", RunDynamics},
			},
		},
	},
	{
		Name: "coord", Default: "xyzabc",
		Usage:    "fragment position representation",
		geometry: true,
		kind: enumKind[potential.CoordType]{
			field: func(c *Config) *potential.CoordType { return &c.CoordType },
			values: []choice[potential.CoordType]{
				{"xyzabc", potential.CoordXYZABC},
				{"points", potential.CoordPoints},
			},
		},
	},
	{
		Name: "units", Default: "angs",
		Usage:    "length units of fragment positions",
		geometry: true,
		kind: enumKind[float64]{
			field: func(c *Config) *float64 { return &c.UnitsFactor },
			values: []choice[float64]{
				{"bohr", 1},
				{"angs", 1 / BohrRadius},
			},
		},
	},
	{
		Name: "terms", Default: "elec pol disp xr",
		Usage: "interaction terms to compute",
		kind:  termsKind{field: func(c *Config) *potential.Terms { return &c.Terms }},
	},
	{
		Name: "elec_damp", Default: "screen",
		Usage: "electrostatic damping",
		kind: enumKind[potential.ElecDamp]{
			field: func(c *Config) *potential.ElecDamp { return &c.ElecDamp },
			values: []choice[potential.ElecDamp]{
				{"screen", potential.ElecDampScreen},
				{"overlap", potential.ElecDampOverlap},
				{"off", potential.ElecDampOff},
			},
		},
	},
	{
		Name: "disp_damp", Default: "tt",
		Usage: "dispersion damping",
		kind: enumKind[potential.DispDamp]{
			field: func(c *Config) *potential.DispDamp { return &c.DispDamp },
			values: []choice[potential.DispDamp]{
				{"tt", potential.DispDampTT},
				{"overlap", potential.DispDampOverlap},
				{"off", potential.DispDampOff},
			},
		},
	},
	{
		Name: "pol_damp", Default: "tt",
		Usage: "polarization damping",
		kind: enumKind[potential.PolDamp]{
			field: func(c *Config) *potential.PolDamp { return &c.PolDamp },
			values: []choice[potential.PolDamp]{
				{"tt", potential.PolDampTT},
				{"off", potential.PolDampOff},
			},
		},
	},
	{
		Name: "hess_delta", Default: "0.001",
		Usage: "finite difference step for the hessian, bohr or radians",
		kind:  floatKind{field: func(c *Config) *float64 { return &c.HessDelta }, valid: positive},
	},
	{
		Name: "hess_assemble", Default: "off",
		Usage: "write forward differences into the hessian",
		kind: enumKind[HessAssemble]{
			field: func(c *Config) *HessAssemble { return &c.HessAssemble },
			values: []choice[HessAssemble]{
				{"off", HessAssembleOff},
				{"forward", HessAssembleForward},
			},
		},
	},
	{
		Name: "max_steps", Default: "100",
		Usage: "maximum number of optimization or dynamics steps",
		kind:  intKind{field: func(c *Config) *int { return &c.MaxSteps }, valid: positiveInt},
	},
	{
		Name: "print_step", Default: "1",
		Usage: "dynamics steps between status reports (optimization reports every step)",
		kind:  intKind{field: func(c *Config) *int { return &c.PrintStep }, valid: positiveInt},
	},
	{
		Name: "temperature", Default: "300.0",
		Usage: "dynamics temperature, kelvin",
		kind:  floatKind{field: func(c *Config) *float64 { return &c.Temperature }, valid: positive},
	},
	{
		Name: "time_step", Default: "1.0",
		Usage: "dynamics time step, femtoseconds",
		kind:  floatKind{field: func(c *Config) *float64 { return &c.TimeStep }, valid: positive},
	},
	{
		Name: "thermostat_tau", Default: "1000.0",
		Usage: "thermostat coupling time, femtoseconds",
		kind:  floatKind{field: func(c *Config) *float64 { return &c.ThermostatTau }, valid: positive},
	},
	{
		Name: "ensemble", Default: "nve",
		Usage: "dynamics ensemble",
		kind: enumKind[Ensemble]{
			field: func(c *Config) *Ensemble { return &c.Ensemble },
			values: []choice[Ensemble]{
				{"nve", EnsembleNVE},
				{"nvt", EnsembleNVT},
			},
		},
	},
	{
		Name: "opt_tol", Default: "1.0e-5",
		Usage: "optimization gradient tolerance",
		kind:  floatKind{field: func(c *Config) *float64 { return &c.OptTol }, valid: positive},
	},
	{
		Name: "fraglib_path", Default: DefaultFraglibPath,
		Usage: "directory of library fragment potentials",
		kind:  stringKind{field: func(c *Config) *string { return &c.FraglibPath }},
	},
	{
		Name: "userlib_path", Default: ".",
		Usage: "directory of user fragment potentials",
		kind:  stringKind{field: func(c *Config) *string { return &c.UserlibPath }},
	},
	{
		Name: "enable_pbc", Default: "false",
		Usage: "apply periodic boundary conditions",
		kind:  boolKind{field: func(c *Config) *bool { return &c.EnablePBC }},
	},
	{
		Name: "periodic_box", Default: "30.0 30.0 30.0",
		Usage: "periodic box dimensions, bohr",
		kind:  vectorKind{field: func(c *Config) *[3]float64 { return &c.PeriodicBox }, valid: positive},
	},
	{
		Name: "enable_cutoff", Default: "false",
		Usage: "switch off interactions beyond swf_cutoff",
		kind:  boolKind{field: func(c *Config) *bool { return &c.EnableCutoff }},
	},
	{
		Name: "swf_cutoff", Default: "10.0",
		Usage: "interaction cutoff distance, bohr",
		kind:  floatKind{field: func(c *Config) *float64 { return &c.SwfCutoff }, valid: positive},
	},
}

// Options returns the option registry in declaration order.
func Options() []Option {
	out := make([]Option, len(registry))
	copy(out, registry)
	return out
}

// LookupOption finds a registered option by name.
func LookupOption(name string) (Option, bool) {
	for _, o := range registry {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// Format returns the input text for the stored value of option name.
func (c *Config) Format(name string) (string, error) {
	opt, ok := LookupOption(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	return opt.kind.format(c), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// QuoteName returns s as it must appear after a fragment keyword or as a
// string option value: double-quoted when empty or containing whitespace.
func QuoteName(s string) string {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < 0x80 && isSpace(byte(r)) }) >= 0 {
		return `"` + s + `"`
	}
	return s
}

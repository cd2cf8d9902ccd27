package config

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOption       = errors.New("unknown option")
	ErrIncorrectValue      = errors.New("incorrect value for option")
	ErrOutOfRange          = errors.New("option value is out of range")
	ErrOnePerLine          = errors.New("only one option per line")
	ErrFragmentName        = errors.New("unable to read fragment name")
	ErrFragmentCoords      = errors.New("unable to read fragment coordinates")
	ErrFragmentVelocities  = errors.New("unable to read fragment velocities")
	ErrNoFragments         = errors.New("at least one fragment must be specified")
	ErrDuplicateOption     = errors.New("option specified more than once")
	ErrOptionAfterFragment = errors.New("option must precede the first fragment")
	ErrBadDefault          = errors.New("invalid default value")
)

// ParseError locates a parse failure in the input.
type ParseError struct {
	Line   int
	Option string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Option != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Option)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

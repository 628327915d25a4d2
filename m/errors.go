package m

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned by this package. Call sites wrap them with positions or lengths,
// so test for them with errors.Is.
var (
	ErrInvalidTopology   = errors.New("invalid topology")
	ErrIndexOutOfBounds  = errors.New("index out of bounds")
	ErrCorruptModel      = errors.New("corrupt model")
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}

func (e errInvalidLine) Unwrap() error {
	return ErrDimensionMismatch
}

func checkLen(what string, got, want int) error {
	if got != want {
		return errors.Wrapf(ErrDimensionMismatch, "%s has length %d, want %d", what, got, want)
	}
	return nil
}

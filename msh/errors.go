package msh

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ParseError.
var (
	ErrCannotReadFile  = errors.New("cannot read mesh file")
	ErrBadValue        = errors.New("unexpected value")
	ErrBadInteger      = errors.New("bad integer")
	ErrBadElementType  = errors.New("bad element type")
	ErrIndexOutOfRange = errors.New("node index out of range")
	ErrUnexpectedEOF   = errors.New("unexpected end of file")
)

// ParseError locates a decoding failure in the input.
type ParseError struct {
	Offset   int
	Expected string
	Found    string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Expected == "" && e.Found == "" {
		return fmt.Sprintf("msh: %v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("msh: %v at offset %d: expected %s, found %s", e.Err, e.Offset, e.Expected, e.Found)
}

func (e *ParseError) Unwrap() error { return e.Err }

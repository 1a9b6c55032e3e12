package registry

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("alert not found")

// ParseError reports a payload that could not be decoded. Index is the
// offending array entry, or -1 when the payload itself is malformed.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error at entry %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

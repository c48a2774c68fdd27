package pipeline

import (
	"errors"
	"fmt"
)

// ErrPageUnavailable matches every PageError.
var ErrPageUnavailable = errors.New("page unavailable")

// SchemaError reports an expected column missing from a source.
// It is fatal for the page using that source.
type SchemaError struct {
	Source string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: source %q is missing column %q", e.Source, e.Column)
}

// ParseError reports a value that does not match its declared type or layout.
// Row is the 1-based data row (the header is not counted).
type ParseError struct {
	Source string
	Row    int
	Column string
	Value  string
	Layout string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse: %s row %d column %q: cannot parse %q", e.Source, e.Row, e.Column, e.Value)
	if e.Layout != "" {
		msg += fmt.Sprintf(" with layout %q", e.Layout)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// PageError reports a page whose data could not be loaded. Other pages keep
// serving.
type PageError struct {
	Page string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

func (e *PageError) Is(target error) bool { return target == ErrPageUnavailable }

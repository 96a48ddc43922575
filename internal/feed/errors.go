package feed

import (
	"fmt"
)

// FetchError reports a failed GET of the CSV resource. StatusCode is zero
// when the request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP error, status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports CSV text that could not be read structurally.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("CSV parse error on line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("CSV parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

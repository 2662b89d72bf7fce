package domain

import "fmt"

// UIError is a transient UI failure: an element that should exist was not
// found, a click missed, or a navigation didn't take. These are always
// retryable up to the caller's bound.
type UIError struct {
	Stage    string
	Selector string
	Err      error
}

func (e *UIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ui failure at %s (selector %q): %v", e.Stage, e.Selector, e.Err)
	}
	return fmt.Sprintf("ui failure at %s (selector %q)", e.Stage, e.Selector)
}

func (e *UIError) Unwrap() error { return e.Err }

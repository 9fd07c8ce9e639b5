package source

import "errors"

// ErrUnexpectedStatus is returned for non-200 controller responses.
var ErrUnexpectedStatus = errors.New("unexpected status code")

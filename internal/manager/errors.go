package manager

import "errors"

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("manager closed")

var errNoBackend = errors.New("no backend configured")

// loadFailedError signals that the backend could not materialize a model.
// The slot is empty afterwards; nothing is retried.
type loadFailedError struct {
	model string
	err   error
}

func (e loadFailedError) Error() string { return "load " + e.model + " failed: " + e.err.Error() }

func (e loadFailedError) Unwrap() error { return e.err }

// IsLoadFailed reports whether err came from a failed backend load (return 503).
func IsLoadFailed(err error) bool {
	var e loadFailedError
	return errors.As(err, &e)
}

type modelNotFoundError struct {
	id  string
	err error
}

func (e modelNotFoundError) Error() string {
	if e.err != nil {
		return "model not found: " + e.id + ": " + e.err.Error()
	}
	return "model not found: " + e.id
}

func (e modelNotFoundError) Unwrap() error { return e.err }

// ErrModelNotFound returns an error when a requested model id cannot be resolved.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates an unknown model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// capabilityUnavailableError signals that the loaded model lacks a feature
// the caller asked for, e.g. streaming.
type capabilityUnavailableError struct{ model, capability string }

func (e capabilityUnavailableError) Error() string {
	return e.capability + " not supported by " + e.model
}

// ErrCapabilityUnavailable constructs a capabilityUnavailableError.
func ErrCapabilityUnavailable(model, capability string) error {
	return capabilityUnavailableError{model: model, capability: capability}
}

// IsCapabilityUnavailable reports whether err indicates a missing model capability.
func IsCapabilityUnavailable(err error) bool {
	var e capabilityUnavailableError
	return errors.As(err, &e)
}

type inputNotFoundError struct{ path string }

func (e inputNotFoundError) Error() string { return "file not found: " + e.path }

// ErrInputNotFound returns an error for a missing input resource.
func ErrInputNotFound(path string) error { return inputNotFoundError{path: path} }

// IsInputNotFound reports whether err indicates a missing input resource.
func IsInputNotFound(err error) bool {
	var e inputNotFoundError
	return errors.As(err, &e)
}

type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidRequest constructs an error for malformed load parameters (return 400).
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err indicates a malformed request.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

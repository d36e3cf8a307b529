package sensitivedata

import (
	"errors"
)

// SafeError redacts tracked values from err's message. The original error
// is returned untouched when nothing needed redaction, preserving its type.
func SafeError(err error, provider *Provider) error {
	if err == nil || provider == nil {
		return err
	}

	msg := err.Error()
	scrubbed := provider.ScrubString(msg)
	if scrubbed == msg {
		return err
	}
	return &redactedError{msg: scrubbed, cause: err}
}

// redactedError keeps the chain for errors.As while hiding the message.
type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.cause }

// IsRedacted reports whether err passed through SafeError with a change.
func IsRedacted(err error) bool {
	var r *redactedError
	return errors.As(err, &r)
}

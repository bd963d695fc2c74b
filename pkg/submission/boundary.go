package submission

import (
	"context"
	"errors"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
)

// Boundary performs the external call for a validated payload. Implementations
// must return exactly once and should honour ctx cancellation.
type Boundary interface {
	Submit(ctx context.Context, values field.Values) Outcome
}

// BoundaryFunc adapts a plain function to Boundary.
type BoundaryFunc func(ctx context.Context, values field.Values) Outcome

// Submit calls f.
func (f BoundaryFunc) Submit(ctx context.Context, values field.Values) Outcome {
	return f(ctx, values)
}

// UnexpectedErrorMessage is reported when a boundary panics or returns an
// outcome that is neither ok nor carries an error.
const UnexpectedErrorMessage = "unexpected error"

// Outcome is the settled result of a boundary call.
type Outcome struct {
	ok   bool
	data any
	err  error
}

// Ok builds a successful outcome.
func Ok(data any) Outcome {
	return Outcome{ok: true, data: data}
}

// Err builds a failed outcome with a user-facing message.
func Err(message string) Outcome {
	return Outcome{err: &BoundaryError{Message: message}}
}

// Fail builds a failed outcome from err. A *BoundaryError anywhere in the
// chain supplies the message and field errors.
func Fail(err error) Outcome {
	if err == nil {
		err = errors.New(UnexpectedErrorMessage)
	}
	return Outcome{err: err}
}

// IsOk reports whether the call succeeded.
func (o Outcome) IsOk() bool { return o.ok }

// Data returns the success payload.
func (o Outcome) Data() any { return o.data }

// Err returns the failure, or nil on success.
func (o Outcome) Err() error {
	if o.ok {
		return nil
	}
	if o.err == nil {
		return errors.New(UnexpectedErrorMessage)
	}
	return o.err
}

// Message returns the form-level text for a failed outcome.
func (o Outcome) Message() string {
	err := o.Err()
	if err == nil {
		return ""
	}
	var be *BoundaryError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnexpectedErrorMessage
}

// FieldErrors returns the per-field messages carried by a *BoundaryError.
func (o Outcome) FieldErrors() map[string][]string {
	var be *BoundaryError
	if errors.As(o.Err(), &be) {
		return be.Fields
	}
	return nil
}

// BoundaryError is a failure reported by the far side of a boundary. Fields
// holds server-side field errors keyed by whatever path the server used; the
// controller maps them onto declared fields.
type BoundaryError struct {
	Message string
	Status  int
	Fields  map[string][]string
	Err     error
}

func (e *BoundaryError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return UnexpectedErrorMessage
	}
}

func (e *BoundaryError) Unwrap() error { return e.Err }

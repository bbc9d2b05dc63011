// Package protocol defines the error taxonomy shared by the relay's
// transports. Errors carry enough classification for the retry machinery to
// decide between retrying, aborting, and surfacing a terminal link failure.
package protocol

import "errors"

// Error exposes methods useful for categorizing transport errors.
type Error interface {
	error

	// MayHaveSucceeded returns true if the operation that triggered the Error
	// might nonetheless have been carried out. For example, a timeout while
	// waiting for a delivery acknowledgment does not prove the backend never
	// received the sample.
	MayHaveSucceeded() bool

	// Temporary returns true if the Error might be the result of a transient
	// condition that a retry can resolve without user action.
	Temporary() bool
}

var (
	// ErrNotConnected indicates the link is not currently established.
	ErrNotConnected = NewError("link not connected", false, false)
	// ErrRetriesExhausted indicates the retry budget for the current attempt
	// sequence is spent. Recoverable by a later success or a manual reconnect.
	ErrRetriesExhausted = NewError("retries exhausted", false, false)
)

// CommandError is the concrete Error used by transports for wrapped failures.
type CommandError struct {
	Err               error
	PossibleSuccess   bool
	PossibleTemporary bool
}

// NewError builds a classified error from a message.
func NewError(message string, mayHaveSucceeded bool, temporary bool) error {
	return &CommandError{Err: errors.New(message), PossibleSuccess: mayHaveSucceeded, PossibleTemporary: temporary}
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) MayHaveSucceeded() bool {
	return e.PossibleSuccess
}

func (e *CommandError) Temporary() bool {
	return e.PossibleTemporary
}

// MayHaveSucceeded returns true if err indicates the operation may have been
// carried out even though the client did not receive a confirmation.
func MayHaveSucceeded(err error) bool {
	var classified Error
	return errors.As(err, &classified) && classified.MayHaveSucceeded()
}

// Temporary returns true if err indicates a possibly transient failure.
func Temporary(err error) bool {
	var classified Error
	return errors.As(err, &classified) && classified.Temporary()
}

package light

import (
	"errors"
	"fmt"
	"time"
)

// ErrHeaderExpired means a header fell outside the trusting period. If the
// expired header is the trusted anchor, the light client must be reset
// subjectively.
type ErrHeaderExpired struct {
	Height int64
	At     time.Time
	Now    time.Time
}

func (e ErrHeaderExpired) Error() string {
	return fmt.Sprintf("header #%d has expired at %v (now: %v)", e.Height, e.At, e.Now)
}

// ErrInvalidHeader means the header either failed the basic validation or
// commit is not signed by 2/3+.
type ErrInvalidHeader struct {
	Reason error
}

func (e ErrInvalidHeader) Error() string {
	return fmt.Sprintf("invalid header: %v", e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrInvalidHeader) Unwrap() error {
	return e.Reason
}

// ErrFetchUnavailable means the provider could not supply the light block at
// Height. The session can be retried later from the same anchor.
type ErrFetchUnavailable struct {
	Height int64
	Reason error
}

func (e ErrFetchUnavailable) Error() string {
	return fmt.Sprintf("light block #%d unavailable: %v", e.Height, e.Reason)
}

// Unwrap returns underlying reason.
func (e ErrFetchUnavailable) Unwrap() error {
	return e.Reason
}

// ErrBisectionExhausted means the blocks at From and To are adjacent and the
// validator set changed too much between them to extend trust. The partial
// trace is kept in the State.
type ErrBisectionExhausted struct {
	From int64
	To   int64
}

func (e ErrBisectionExhausted) Error() string {
	return fmt.Sprintf("cannot extend trust from #%d to #%d: no height left to bisect", e.From, e.To)
}

// ErrVerificationFailed means verification from header #1 to header #2 has
// failed due to some reason.
type ErrVerificationFailed struct {
	From   int64
	To     int64
	Reason error
}

// Unwrap returns underlying reason.
func (e ErrVerificationFailed) Unwrap() error {
	return e.Reason
}

func (e ErrVerificationFailed) Error() string {
	return fmt.Sprintf(
		"verify from #%d to #%d failed: %v",
		e.From, e.To, e.Reason)
}

// ErrNoTrustedAnchor is returned by VerifyToHeight when the store holds no
// trusted or verified block below the target.
var ErrNoTrustedAnchor = errors.New("no trusted or verified light block below target")

package usecase

import "errors"

var (
	// ErrNotFound - booking or related record does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrForbidden - the actor is not authorized for this edge.
	ErrForbidden = errors.New("not authorized for this booking")

	// ErrConflict - the compare-and-set precondition failed: another actor
	// moved the booking first. Surfaced as "job no longer available".
	ErrConflict = errors.New("booking state conflict")

	// ErrInvalidTransition - the requested edge is not in the state graph.
	// A contract violation, never silently ignored.
	ErrInvalidTransition = errors.New("invalid status transition")

	// OTP completion handshake failures. All recoverable by a fresh
	// request-completion.
	ErrOtpNotRequested     = errors.New("no completion code requested")
	ErrOtpExpired          = errors.New("completion code expired")
	ErrOtpMismatch         = errors.New("completion code does not match")
	ErrOtpAttemptsExceeded = errors.New("completion code attempts exceeded")

	// ErrAlreadyReviewed - one review per completed booking.
	ErrAlreadyReviewed = errors.New("booking already reviewed")

	// ErrStreamUnavailable - live push transport is not configured;
	// clients fall back to polling.
	ErrStreamUnavailable = errors.New("notification stream unavailable")
)

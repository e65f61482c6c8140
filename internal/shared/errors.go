package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPasscode indicates unlock failure.
	ErrInvalidPasscode = errors.New("invalid passcode")
	// ErrPasscodeNotSet occurs when unlock is attempted on a device without
	// a configured passcode.
	ErrPasscodeNotSet = errors.New("passcode not set")
)

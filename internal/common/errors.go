// Package common defines shared constants and sentinel errors used across
// the issuing server and the viewer. Callers should use errors.Is to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrBadRequest = errors.New("bad request")

	// Protocol errors. All of them except ErrPasscode and ErrNetwork are terminal.
	ErrFormat         = errors.New("malformed payload")
	ErrExpired        = errors.New("link expired")
	ErrAuthentication = errors.New("authentication tag mismatch")
	ErrPasscode       = errors.New("invalid passcode")
	ErrLockedOut      = errors.New("passcode attempts exhausted")
	ErrNetwork        = errors.New("network error")
	ErrNoLongerValid  = errors.New("link no longer valid")
	ErrInactive       = errors.New("link inactive")

	// Token errors (file download tokens).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Viewer errors.
	ErrResolutionInFlight = errors.New("resolution already in progress")
)

// PasscodeError reports a rejected passcode together with the number of
// attempts the server still allows. It matches ErrPasscode via errors.Is.
type PasscodeError struct {
	Remaining int
}

func (e *PasscodeError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrPasscode.Error(), e.Remaining)
}

func (e *PasscodeError) Is(target error) bool {
	return target == ErrPasscode
}

// Terminal reports whether err ends a resolution for good. Only a rejected
// passcode and transient network failures can be recovered from.
func Terminal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrPasscode) && !errors.Is(err, ErrNetwork)
}

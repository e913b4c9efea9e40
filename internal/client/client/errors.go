package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/shlink"
)

// ErrUnexpectedStatus wraps statuses without a protocol meaning.
var ErrUnexpectedStatus = errors.New("unexpected status")

// statusError maps a non-200 response onto the protocol errors.
func statusError(code int, body []byte) error {
	var er shlink.ErrorResponse
	_ = json.Unmarshal(body, &er)

	switch {
	case code == http.StatusUnauthorized:
		remaining := 0
		if er.RemainingAttempts != nil {
			remaining = *er.RemainingAttempts
		}
		return &common.PasscodeError{Remaining: remaining}
	case code == http.StatusForbidden:
		return common.ErrLockedOut
	case code == http.StatusNotFound:
		return common.ErrorNotFound
	case code == http.StatusGone:
		return common.ErrExpired
	case transientStatus(code):
		return fmt.Errorf("%w: server answered %d", common.ErrNetwork, code)
	default:
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, code, er.Error)
	}
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

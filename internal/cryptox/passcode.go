package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPasscode returns a bcrypt hash suitable for storing on a link record.
func HashPasscode(passcode string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// maxPasscodeBytes is the longest input bcrypt accepts.
const maxPasscodeBytes = 72

// CheckPasscode reports whether passcode matches hash. An empty passcode, or
// one longer than bcrypt can hash, never matches.
func CheckPasscode(hash, passcode string) (bool, error) {
	if passcode == "" || len(passcode) > maxPasscodeBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

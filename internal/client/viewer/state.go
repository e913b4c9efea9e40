package viewer

import (
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/shlink"
)

type State int

const (
	StateIdle State = iota
	StateParseError
	StateExpired
	StatePasscodeRequired
	StateLoading
	StateDecrypting
	StateSuccess
	StateError
)

var stateNames = map[State]string{
	StateIdle:             "IDLE",
	StateParseError:       "PARSE_ERROR",
	StateExpired:          "EXPIRED",
	StatePasscodeRequired: "PASSCODE_REQUIRED",
	StateLoading:          "LOADING",
	StateDecrypting:       "DECRYPTING",
	StateSuccess:          "SUCCESS",
	StateError:            "ERROR",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Terminal reports whether no further event except a new Opened can move
// the machine out of s.
func (s State) Terminal() bool {
	switch s {
	case StateParseError, StateExpired, StateSuccess:
		return true
	}
	return false
}

// DecryptedFile is one file of a resolved link, in manifest order.
type DecryptedFile struct {
	ContentType string
	LastUpdated string
	Data        []byte
}

// Snapshot is the full observable state of one resolution.
type Snapshot struct {
	State   State
	Payload *shlink.Payload
	Files   []DecryptedFile

	// Status is the manifest status once one has been received.
	Status string

	// RemainingAttempts is set after the server rejected a passcode.
	RemainingAttempts *int

	Err error
}

// Retryable reports whether a fresh Resolve may be started from s.
func (s Snapshot) Retryable() bool {
	switch s.State {
	case StatePasscodeRequired, StateLoading:
		return true
	case StateError:
		return s.Err != nil && !common.Terminal(s.Err)
	}
	return false
}

// Event is something that happened during resolution.
type Event interface {
	isEvent()
}

// Opened carries a successfully decoded link and the time it was opened.
type Opened struct {
	Payload *shlink.Payload
	Now     time.Time
}

type ParseFailed struct {
	Err error
}

// PasscodeSubmitted starts a network attempt.
type PasscodeSubmitted struct{}

type PasscodeRejected struct {
	Remaining int
}

type ManifestReceived struct {
	Status string
}

type FilesDecrypted struct {
	Files []DecryptedFile
}

type Failed struct {
	Err error
}

func (Opened) isEvent()            {}
func (ParseFailed) isEvent()       {}
func (PasscodeSubmitted) isEvent() {}
func (PasscodeRejected) isEvent()  {}
func (ManifestReceived) isEvent()  {}
func (FilesDecrypted) isEvent()    {}
func (Failed) isEvent()            {}

// Transition returns the snapshot that follows s after e. Events that make
// no sense in the current state leave s unchanged.
func Transition(s Snapshot, e Event) Snapshot {
	switch ev := e.(type) {
	case Opened:
		next := Snapshot{Payload: ev.Payload}
		switch {
		case ev.Payload == nil:
			next.State = StateParseError
			next.Err = common.ErrFormat
		case ev.Payload.Expired(ev.Now):
			next.State = StateExpired
			next.Err = common.ErrExpired
		case ev.Payload.Has(shlink.FlagPasscode):
			next.State = StatePasscodeRequired
		default:
			next.State = StateLoading
		}
		return next

	case ParseFailed:
		err := ev.Err
		if err == nil {
			err = common.ErrFormat
		}
		return Snapshot{State: StateParseError, Err: err}

	case PasscodeSubmitted:
		if !s.Retryable() {
			return s
		}
		s.State = StateLoading
		s.Err = nil
		return s

	case PasscodeRejected:
		if s.State != StateLoading {
			return s
		}
		remaining := max(0, ev.Remaining)
		s.State = StatePasscodeRequired
		s.RemainingAttempts = &remaining
		s.Err = &common.PasscodeError{Remaining: remaining}
		return s

	case ManifestReceived:
		if s.State != StateLoading {
			return s
		}
		s.Status = ev.Status
		if ev.Status == shlink.StatusNoLongerValid {
			s.State = StateError
			s.Files = nil
			s.Err = common.ErrNoLongerValid
			return s
		}
		s.State = StateDecrypting
		return s

	case FilesDecrypted:
		if s.State != StateDecrypting {
			return s
		}
		s.State = StateSuccess
		s.Files = ev.Files
		s.Err = nil
		return s

	case Failed:
		if s.State != StateLoading && s.State != StateDecrypting {
			return s
		}
		s.State = StateError
		s.Files = nil
		s.Err = ev.Err
		return s
	}
	return s
}

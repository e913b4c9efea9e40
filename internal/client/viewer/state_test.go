package viewer

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/shlink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	plain := &shlink.Payload{URL: "https://x/m", Key: "k", V: 1}
	protected := &shlink.Payload{URL: "https://x/m", Key: "k", Flag: "P", V: 1}
	expired := &shlink.Payload{URL: "https://x/m", Key: "k", Flag: "P", Exp: now.Add(-time.Second).Unix(), V: 1}
	files := []DecryptedFile{{ContentType: "application/fhir+json", Data: []byte(`{}`)}}
	netErr := errors.Join(common.ErrNetwork)

	tests := []struct {
		name      string
		from      Snapshot
		event     Event
		wantState State
		wantErr   error
	}{
		{"open plain", Snapshot{}, Opened{Payload: plain, Now: now}, StateLoading, nil},
		{"open protected", Snapshot{}, Opened{Payload: protected, Now: now}, StatePasscodeRequired, nil},
		{"open expired", Snapshot{}, Opened{Payload: expired, Now: now}, StateExpired, common.ErrExpired},
		{"open nil payload", Snapshot{}, Opened{Now: now}, StateParseError, common.ErrFormat},
		{"parse failed", Snapshot{State: StateSuccess}, ParseFailed{Err: common.ErrFormat}, StateParseError, common.ErrFormat},
		{"submit from passcode required", Snapshot{State: StatePasscodeRequired, Payload: protected}, PasscodeSubmitted{}, StateLoading, nil},
		{"submit after network error", Snapshot{State: StateError, Err: netErr}, PasscodeSubmitted{}, StateLoading, nil},
		{"submit after terminal error", Snapshot{State: StateError, Err: common.ErrLockedOut}, PasscodeSubmitted{}, StateError, common.ErrLockedOut},
		{"submit after success ignored", Snapshot{State: StateSuccess}, PasscodeSubmitted{}, StateSuccess, nil},
		{"rejected", Snapshot{State: StateLoading}, PasscodeRejected{Remaining: 2}, StatePasscodeRequired, common.ErrPasscode},
		{"rejected outside loading ignored", Snapshot{State: StateExpired, Err: common.ErrExpired}, PasscodeRejected{Remaining: 2}, StateExpired, common.ErrExpired},
		{"manifest active", Snapshot{State: StateLoading}, ManifestReceived{Status: shlink.StatusActive}, StateDecrypting, nil},
		{"manifest can-change", Snapshot{State: StateLoading}, ManifestReceived{Status: shlink.StatusCanChange}, StateDecrypting, nil},
		{"manifest revoked", Snapshot{State: StateLoading}, ManifestReceived{Status: shlink.StatusNoLongerValid}, StateError, common.ErrNoLongerValid},
		{"decrypted", Snapshot{State: StateDecrypting}, FilesDecrypted{Files: files}, StateSuccess, nil},
		{"decrypted outside decrypting ignored", Snapshot{State: StateLoading}, FilesDecrypted{Files: files}, StateLoading, nil},
		{"failed while loading", Snapshot{State: StateLoading}, Failed{Err: common.ErrNetwork}, StateError, common.ErrNetwork},
		{"failed while decrypting", Snapshot{State: StateDecrypting, Files: files}, Failed{Err: common.ErrAuthentication}, StateError, common.ErrAuthentication},
		{"failed when terminal ignored", Snapshot{State: StateSuccess}, Failed{Err: common.ErrNetwork}, StateSuccess, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transition(tt.from, tt.event)
			assert.Equal(t, tt.wantState, got.State)
			if tt.wantErr == nil {
				assert.NoError(t, got.Err)
			} else {
				assert.ErrorIs(t, got.Err, tt.wantErr)
			}
		})
	}
}

func TestTransition_RejectedCarriesRemaining(t *testing.T) {
	got := Transition(Snapshot{State: StateLoading}, PasscodeRejected{Remaining: -1})
	require.NotNil(t, got.RemainingAttempts)
	assert.Equal(t, 0, *got.RemainingAttempts)

	got = Transition(Snapshot{State: StateLoading}, PasscodeRejected{Remaining: 4})
	assert.Equal(t, 4, *got.RemainingAttempts)
}

func TestTransition_FailureDiscardsFiles(t *testing.T) {
	s := Snapshot{State: StateLoading}
	s = Transition(s, ManifestReceived{Status: shlink.StatusNoLongerValid})
	assert.Nil(t, s.Files)
	assert.Equal(t, shlink.StatusNoLongerValid, s.Status)

	s = Snapshot{State: StateDecrypting, Files: []DecryptedFile{{Data: []byte("x")}}}
	s = Transition(s, Failed{Err: common.ErrAuthentication})
	assert.Nil(t, s.Files)
}

func TestTransition_ReopenResets(t *testing.T) {
	p := &shlink.Payload{URL: "u", Key: "k", V: 1}
	s := Snapshot{State: StateSuccess, Status: "can-change", Files: []DecryptedFile{{}}}

	s = Transition(s, Opened{Payload: p, Now: time.Now()})
	assert.Equal(t, StateLoading, s.State)
	assert.Empty(t, s.Status)
	assert.Nil(t, s.Files)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "PASSCODE_REQUIRED", StatePasscodeRequired.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
	assert.True(t, StateExpired.Terminal())
	assert.False(t, StateError.Terminal())
}

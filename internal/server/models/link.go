package models

import "time"

// LinkState is the lifecycle position of a link as seen by the manifest endpoint.
type LinkState string

const (
	LinkActive   LinkState = "ACTIVE"
	LinkLocked   LinkState = "LOCKED"
	LinkExpired  LinkState = "EXPIRED"
	LinkConsumed LinkState = "CONSUMED"
	LinkInactive LinkState = "INACTIVE"
)

// Reasons stored in links.deactivation_reason.
const (
	ReasonRevoked  = "revoked"
	ReasonLocked   = "locked"
	ReasonConsumed = "consumed"
)

type Link struct {
	ID                 string
	ManifestID         string
	EncryptionKey      string
	PasscodeHash       *string
	Label              string
	SingleUse          bool
	LongTerm           bool
	DirectAccess       bool
	ExpiresAt          *time.Time
	Active             bool
	FailedAttempts     int
	DeactivationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PasscodeProtected reports whether the link was issued with a passcode.
func (l *Link) PasscodeProtected() bool {
	return l.PasscodeHash != nil && *l.PasscodeHash != ""
}

// Expired reports whether now lies past the link's expiry.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// Revoked reports an explicit deactivation by the issuer.
func (l *Link) Revoked() bool {
	return !l.Active && l.reason() == ReasonRevoked
}

// State derives the lifecycle state. Expiry wins over every other state.
func (l *Link) State(now time.Time) LinkState {
	if l.Expired(now) {
		return LinkExpired
	}
	if l.Active {
		return LinkActive
	}
	switch l.reason() {
	case ReasonLocked:
		return LinkLocked
	case ReasonConsumed:
		return LinkConsumed
	default:
		return LinkInactive
	}
}

func (l *Link) reason() string {
	if l.DeactivationReason == nil {
		return ""
	}
	return *l.DeactivationReason
}

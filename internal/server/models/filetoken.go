package models

import "time"

// FileToken records a location URL handed out in a manifest so that it can
// be redeemed at most once.
type FileToken struct {
	JTI        string
	LinkID     string
	ContentID  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

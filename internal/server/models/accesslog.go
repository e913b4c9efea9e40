package models

import "time"

// AccessAction classifies an access log record.
type AccessAction string

const (
	ActionManifestRequest AccessAction = "MANIFEST_REQUEST"
	ActionPasscodeFailure AccessAction = "PASSCODE_FAILURE"
	ActionDirectAccess    AccessAction = "DIRECT_ACCESS"
	ActionFileDownload    AccessAction = "FILE_DOWNLOAD"
)

type AccessLog struct {
	ID            string
	LinkID        string
	Action        AccessAction
	Recipient     string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason *string
	CreatedAt     time.Time
}

package shlink

// Manifest status values.
const (
	StatusActive        = "active"
	StatusCanChange     = "can-change"
	StatusNoLongerValid = "no-longer-valid"
)

// ManifestRequest is the body POSTed to a manifest URL.
type ManifestRequest struct {
	Recipient         string `json:"recipient" validate:"required,max=256"`
	Passcode          string `json:"passcode,omitempty"`
	EmbeddedLengthMax *int   `json:"embeddedLengthMax,omitempty" validate:"omitempty,min=0"`
}

// ManifestFile describes one file; exactly one of Embedded and Location is set.
type ManifestFile struct {
	ContentType string `json:"contentType"`
	Embedded    string `json:"embedded,omitempty"`
	Location    string `json:"location,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

// Manifest is the successful response of a manifest request.
type Manifest struct {
	Status string         `json:"status"`
	Files  []ManifestFile `json:"files"`
}

// ErrorResponse is the JSON body of a failed protocol request.
// RemainingAttempts is only set on 401 responses.
type ErrorResponse struct {
	Error             string `json:"error"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

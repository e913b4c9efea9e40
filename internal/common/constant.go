package common

// HTTP content markers used on the protocol surface.
const (
	ContentTypeJOSE = "application/jose"
	ContentTypeJSON = "application/json"

	ContentTypeSmartHealthCard = "application/smart-health-card"
	ContentTypeSmartAPIAccess  = "application/smart-api-access"
	ContentTypeFHIRJSON        = "application/fhir+json"
)

// HeaderForwardedFor is consulted before RemoteAddr when recording the client IP.
const HeaderForwardedFor = "X-Forwarded-For"

// RetryAfterSeconds is advertised to viewers polling a can-change manifest.
const RetryAfterSeconds = 60

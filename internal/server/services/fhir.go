package services

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/shlink/internal/common"
)

// ContentTypeDocumentReference labels wrapped uploads in manifests.
const ContentTypeDocumentReference = common.ContentTypeFHIRJSON + ";fhirVersion=4.0.1"

var shlContentTypes = map[string]struct{}{
	common.ContentTypeSmartHealthCard: {},
	common.ContentTypeSmartAPIAccess:  {},
	common.ContentTypeFHIRJSON:        {},
}

// IsSHLContentType reports whether contentType may be shared as is.
// Parameters such as ";fhirVersion=4.0.1" are ignored.
func IsSHLContentType(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	_, ok := shlContentTypes[strings.ToLower(strings.TrimSpace(base))]
	return ok
}

type fhirAttachment struct {
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
	Title       string `json:"title,omitempty"`
}

type fhirContent struct {
	Attachment fhirAttachment `json:"attachment"`
}

type documentReference struct {
	ResourceType string        `json:"resourceType"`
	Status       string        `json:"status"`
	Content      []fhirContent `json:"content"`
}

// WrapDocumentReference embeds an arbitrary file into a minimal FHIR
// DocumentReference so that it can travel as application/fhir+json.
// No FHIR validation is performed.
func WrapDocumentReference(data []byte, contentType, fileName string) ([]byte, error) {
	return json.Marshal(documentReference{
		ResourceType: "DocumentReference",
		Status:       "current",
		Content: []fhirContent{{Attachment: fhirAttachment{
			ContentType: contentType,
			Data:        base64.StdEncoding.EncodeToString(data),
			Title:       fileName,
		}}},
	})
}

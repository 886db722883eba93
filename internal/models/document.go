// internal/models/document.go
package models

// DocumentData is the aggregated input of document generation.
type DocumentData struct {
	BasicInfo      BasicInfo              `json:"basicInfo"`
	FormData       map[string]interface{} `json:"formData"`
	SelectedClaims []ClaimType            `json:"selectedClaims"`
	Children       []Child                `json:"children,omitempty"`
}

// PowerOfAttorney is the document generated for every batch regardless of claims.
const PowerOfAttorney = "power-of-attorney"

const (
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePDF  = "application/pdf"
	ContentTypePNG  = "image/png"
	ContentTypeJSON = "application/json"
)

// GeneratedDocument is transient: it lives in memory until uploaded or streamed.
type GeneratedDocument struct {
	Name        string `json:"name"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

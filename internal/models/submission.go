// internal/models/submission.go
package models

// Attachment is a user-provided file, base64 encoded.
type Attachment struct {
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Data        string    `json:"data"`
	ClaimType   ClaimType `json:"claimType,omitempty"`
}

type SubmissionRequest struct {
	SessionID      string         `json:"sessionId,omitempty"`
	BasicInfo      BasicInfo      `json:"basicInfo"`
	SelectedClaims []ClaimType    `json:"selectedClaims"`
	ClaimAnswers   ClaimAnswers   `json:"claimAnswers"`
	Children       []Child        `json:"children,omitempty"`
	Signature      Signature      `json:"signature"`
	Payment        *PaymentRecord `json:"payment,omitempty"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
	Locale         string         `json:"locale,omitempty"`
}

// FailedUpload records an item that could not be stored.
type FailedUpload struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

type SubmissionResult struct {
	Success       bool              `json:"success"`
	FolderID      string            `json:"folderId"`
	FolderName    string            `json:"folderName"`
	Documents     map[string]string `json:"documents"`
	FailedUploads []FailedUpload    `json:"failedUploads,omitempty"`
}

package documents

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Document is medical document metadata. The file body itself lives in
// external storage; only its SHA-256 digest is kept here, and that digest
// is what gets anchored on chain when the document is approved.
type Document struct {
	ID          uuid.UUID `json:"id"`
	PatientID   string    `json:"patient_id"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type"`
	SHA256      string    `json:"sha256"`
	Status      string    `json:"status"`
	ApprovedBy  string    `json:"approved_by,omitempty"`
	AnchorTxID  string    `json:"anchor_tx_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

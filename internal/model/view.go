package model

import "time"

// SignedLink is a freshly minted, time-boxed URL for the stored document.
// Minted per read, never persisted.
type SignedLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RecordView is the read-model returned to callers. Document fields are
// populated only when the caller's visibility includes the document.
type RecordView struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"owner_id"`
	IssuerID        string       `json:"issuer_id"`
	RecordType      RecordType   `json:"record_type"`
	Title           string       `json:"title"`
	Status          RecordStatus `json:"status"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	Fingerprint     string       `json:"fingerprint"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	OriginalFormat  string       `json:"original_format,omitempty"`
	SignedURL       *SignedLink  `json:"signed_url,omitempty"`
}

// NewRecordView builds the metadata-only view; the caller attaches
// document fields after the access decision.
func NewRecordView(r *AcademicRecord) RecordView {
	return RecordView{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		IssuerID:        r.IssuerID,
		RecordType:      r.RecordType,
		Title:           r.Title,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
		Fingerprint:     r.Fingerprint,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type DecideRequest struct {
	Action          string `json:"action" binding:"required"`
	RejectionReason string `json:"rejection_reason"`
}

type CheckHashResponse struct {
	IsValid bool        `json:"is_valid"`
	Record  *RecordView `json:"record,omitempty"`
	Message string      `json:"message"`
}

// CheckHashCacheEntry is the compact form cached for the public hash
// check. Only validity and the record id are cached; signed links are
// always minted fresh.
type CheckHashCacheEntry struct {
	IsValid  bool   `json:"is_valid"`
	RecordID string `json:"record_id,omitempty"`
}

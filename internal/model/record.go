package model

import "time"

type RecordStatus string

const (
	StatusPending  RecordStatus = "pending"
	StatusVerified RecordStatus = "verified"
	StatusRejected RecordStatus = "rejected"
)

func (s RecordStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

type RecordType string

const (
	TypeCertificate RecordType = "certificate"
	TypeDegree      RecordType = "degree"
	TypeCourse      RecordType = "course"
	TypeTranscript  RecordType = "transcript"
)

func (t RecordType) Valid() bool {
	switch t {
	case TypeCertificate, TypeDegree, TypeCourse, TypeTranscript:
		return true
	}
	return false
}

// Document points at the stored blob. BlobKey is the storage key, never a
// public URL; access goes through short-lived signed links only.
type Document struct {
	BlobKey        string `bson:"blobKey" json:"-"`
	OriginalFormat string `bson:"originalFormat" json:"original_format"`
}

// AcademicRecord is the central entity: one credential submitted by a
// student and verified by the issuing institution.
type AcademicRecord struct {
	ID              string       `bson:"_id" json:"id"`
	OwnerID         string       `bson:"ownerId" json:"owner_id"`
	IssuerID        string       `bson:"issuerId" json:"issuer_id"`
	RecordType      RecordType   `bson:"recordType" json:"record_type"`
	Title           string       `bson:"title" json:"title"`
	Document        Document     `bson:"document" json:"document"`
	Fingerprint     string       `bson:"fingerprint" json:"fingerprint"`
	Status          RecordStatus `bson:"status" json:"status"`
	RejectionReason *string      `bson:"rejectionReason,omitempty" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time    `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time    `bson:"updatedAt" json:"updated_at"`
}

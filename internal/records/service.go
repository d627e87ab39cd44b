// Package records implements the verification workflow: submission,
// issuer decisions, resubmission, access-checked reads, the public
// fingerprint check, and deletion. Blob uploads and repository writes
// are not transactional with each other; the ordering contract is
// upload blob -> commit record -> compensate (delete the new blob) when
// the commit fails, and on resubmission the old blob is deleted only
// after the new state is durably committed.
package records

import (
	"context"
	"io"
	"time"

	"github.com/huseinhashi/academic-record/internal/access"
	"github.com/huseinhashi/academic-record/internal/cache"
	"github.com/huseinhashi/academic-record/internal/config"
	"github.com/huseinhashi/academic-record/internal/db"
	"github.com/huseinhashi/academic-record/internal/fingerprint"
	"github.com/huseinhashi/academic-record/internal/logger"
	"github.com/huseinhashi/academic-record/internal/model"
	"github.com/huseinhashi/academic-record/internal/storage"
	apperrors "github.com/huseinhashi/academic-record/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// allowedFormats maps accepted upload content types to the stored
// original format.
var allowedFormats = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
}

const (
	ActionVerify = "verify"
	ActionReject = "reject"
)

// Upload is a document submission as received from the transport layer.
type Upload struct {
	Content     io.Reader
	Size        int64
	ContentType string
}

type Service struct {
	repo  db.Repository
	blobs storage.BlobStore
	cache *cache.CheckCache
	cfg   *config.Config
	log   zerolog.Logger
}

func NewService(repo db.Repository, blobs storage.BlobStore, checkCache *cache.CheckCache, cfg *config.Config) *Service {
	return &Service{
		repo:  repo,
		blobs: blobs,
		cache: checkCache,
		cfg:   cfg,
		log:   logger.Get().With().Str("component", "records_service").Logger(),
	}
}

// Submit stores the uploaded document, fingerprints the submission and
// persists a new pending record. If persisting fails after the blob is
// stored, the blob is deleted before the error is returned.
func (s *Service) Submit(ctx context.Context, actor model.Actor, issuerID string, recordType model.RecordType, title string, up Upload) (*model.RecordView, error) {
	if actor.Role != model.RoleStudent {
		return nil, apperrors.Authorization("only students can submit academic records")
	}
	if issuerID == "" {
		return nil, apperrors.Validation("issuer_id", "issuer is required")
	}
	if title == "" {
		return nil, apperrors.Validation("title", "title is required")
	}
	if !recordType.Valid() {
		return nil, apperrors.Validation("record_type", "must be one of certificate, degree, course, transcript")
	}
	format, err := s.validateUpload(up)
	if err != nil {
		return nil, err
	}

	blobKey := "records/" + uuid.NewString()
	if err := s.blobs.Store(ctx, blobKey, up.Content, up.ContentType); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &model.AcademicRecord{
		ID:          uuid.NewString(),
		OwnerID:     actor.ID,
		IssuerID:    issuerID,
		RecordType:  recordType,
		Title:       title,
		Document:    model.Document{BlobKey: blobKey, OriginalFormat: format},
		Fingerprint: fingerprint.Compute(actor.ID, issuerID, title, string(recordType), fingerprint.Nonce()),
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		s.cleanupBlob(ctx, blobKey, "submit failed after upload")
		return nil, err
	}

	s.log.Info().
		Str("record_id", record.ID).
		Str("owner_id", record.OwnerID).
		Str("issuer_id", record.IssuerID).
		Msg("Academic record submitted")

	view := model.NewRecordView(record)
	s.attachDocument(ctx, &view, record)
	return &view, nil
}

// Decide applies the issuer's verify or reject decision. The transition
// is a conditional update keyed on status=pending, so a concurrent
// decision loses with a conflict instead of overwriting.
func (s *Service) Decide(ctx context.Context, actor model.Actor, recordID, action, reason string) (*model.RecordView, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if !access.CanDecide(actor, record) {
		return nil, s.writeDenied(actor, record, "not authorized to verify or reject this record")
	}

	var updated *model.AcademicRecord
	switch action {
	case ActionVerify:
		updated, err = s.repo.UpdateStatusIf(ctx, recordID, model.StatusPending, model.StatusVerified, nil)
	case ActionReject:
		if reason == "" {
			return nil, apperrors.Validation("rejection_reason", "rejection reason is required")
		}
		updated, err = s.repo.UpdateStatusIf(ctx, recordID, model.StatusPending, model.StatusRejected, &reason)
	default:
		return nil, apperrors.Validation("action", "must be 'verify' or 'reject'")
	}
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, updated.Fingerprint)

	s.log.Info().
		Str("record_id", updated.ID).
		Str("issuer_id", actor.ID).
		Str("action", action).
		Str("status", string(updated.Status)).
		Msg("Record decision applied")

	view := model.NewRecordView(updated)
	s.attachDocument(ctx, &view, updated)
	return &view, nil
}

// Resubmit replaces the document of a rejected record and resets it to
// pending with a fresh fingerprint. The new blob is uploaded first; if
// the commit fails the new blob is deleted. The old blob is deleted only
// after the commit, so a failed delete never loses both copies.
func (s *Service) Resubmit(ctx context.Context, actor model.Actor, recordID string, up Upload) (*model.RecordView, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if !access.CanResubmit(actor, record) {
		return nil, s.writeDenied(actor, record, "not authorized to update this record")
	}
	if record.Status != model.StatusRejected {
		return nil, apperrors.Conflict("only rejected records can be resubmitted")
	}
	format, err := s.validateUpload(up)
	if err != nil {
		return nil, err
	}

	newKey := "records/" + uuid.NewString()
	if err := s.blobs.Store(ctx, newKey, up.Content, up.ContentType); err != nil {
		return nil, err
	}

	newDoc := model.Document{BlobKey: newKey, OriginalFormat: format}
	newFP := fingerprint.Compute(record.OwnerID, record.IssuerID, record.Title, string(record.RecordType), fingerprint.Nonce())

	updated, err := s.repo.ReplaceDocumentIf(ctx, recordID, model.StatusRejected, newDoc, newFP)
	if err != nil {
		s.cleanupBlob(ctx, newKey, "resubmit failed after upload")
		return nil, err
	}

	// Committed: the old blob is now unreferenced.
	s.cleanupBlob(ctx, record.Document.BlobKey, "old blob after resubmission")
	s.cache.Invalidate(ctx, record.Fingerprint, newFP)

	s.log.Info().
		Str("record_id", updated.ID).
		Str("owner_id", actor.ID).
		Msg("Record resubmitted")

	view := model.NewRecordView(updated)
	s.attachDocument(ctx, &view, updated)
	return &view, nil
}

// Read returns the record as the actor is allowed to see it. Denied
// actors get not-found so record existence cannot be probed.
func (s *Service) Read(ctx context.Context, actor model.Actor, recordID string) (*model.RecordView, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	switch access.Evaluate(actor, record) {
	case access.Deny:
		return nil, apperrors.NotFound("academic record not found")
	case access.WithDocument:
		view := model.NewRecordView(record)
		link, expiresAt, err := s.blobs.SignedURL(ctx, record.Document.BlobKey, s.cfg.Records.SignedURLTTL)
		if err != nil {
			return nil, err
		}
		view.OriginalFormat = record.Document.OriginalFormat
		view.SignedURL = &model.SignedLink{URL: link, ExpiresAt: expiresAt}
		return &view, nil
	default: // MetadataOnly
		view := model.NewRecordView(record)
		return &view, nil
	}
}

// ListMine returns the calling student's own records, each with a fresh
// signed link.
func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]model.RecordView, error) {
	if actor.Role != model.RoleStudent {
		return nil, apperrors.Authorization("only students have own records")
	}

	records, err := s.repo.ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.viewsWithDocuments(ctx, records), nil
}

// ListByIssuer returns records issued by an institution, optionally
// filtered by status. Allowed for that institution itself or an admin.
func (s *Service) ListByIssuer(ctx context.Context, actor model.Actor, issuerID string, status *model.RecordStatus) ([]model.RecordView, error) {
	isIssuer := actor.Role == model.RoleInstitution && actor.ID == issuerID
	if !isIssuer && actor.Role != model.RoleAdmin {
		return nil, apperrors.Authorization("not authorized to access these records")
	}
	if status != nil && !status.Valid() {
		return nil, apperrors.Validation("status", "must be one of pending, verified, rejected")
	}

	records, err := s.repo.ListByIssuer(ctx, issuerID, status)
	if err != nil {
		return nil, err
	}
	return s.viewsWithDocuments(ctx, records), nil
}

// ListByStudent returns another student's records filtered per record by
// the visibility rules: institutions see only what they issued,
// verified companies only verified records, admins and the student
// themself everything.
func (s *Service) ListByStudent(ctx context.Context, actor model.Actor, studentID string) ([]model.RecordView, error) {
	records, err := s.repo.ListByOwner(ctx, studentID)
	if err != nil {
		return nil, err
	}

	views := make([]model.RecordView, 0, len(records))
	for i := range records {
		record := &records[i]
		switch access.Evaluate(actor, record) {
		case access.Deny:
			continue
		case access.WithDocument:
			view := model.NewRecordView(record)
			s.attachDocument(ctx, &view, record)
			views = append(views, view)
		default:
			views = append(views, model.NewRecordView(record))
		}
	}
	return views, nil
}

// CheckFingerprint is the public, unauthenticated hash check. It answers
// yes only for a verified record; a missing and an unverified record are
// indistinguishable to the caller.
func (s *Service) CheckFingerprint(ctx context.Context, fp string) (*model.CheckHashResponse, error) {
	if fp == "" {
		return nil, apperrors.Validation("hash", "hash is required")
	}

	if entry, ok := s.cache.Get(ctx, fp); ok {
		return s.checkResponseFromEntry(ctx, fp, entry)
	}

	record, err := s.repo.GetVerifiedByFingerprint(ctx, fp)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			s.cache.Set(ctx, fp, model.CheckHashCacheEntry{IsValid: false})
			return invalidCheckResponse(), nil
		}
		return nil, err
	}

	s.cache.Set(ctx, fp, model.CheckHashCacheEntry{IsValid: true, RecordID: record.ID})
	return s.validCheckResponse(ctx, record)
}

// Delete removes the blob, then the record. Students carry a
// status=pending precondition into the conditional delete so a
// concurrent verification wins cleanly.
func (s *Service) Delete(ctx context.Context, actor model.Actor, recordID string) error {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}

	if !access.CanDelete(actor, record) {
		if access.Evaluate(actor, record) == access.Deny {
			return apperrors.NotFound("academic record not found")
		}
		if actor.Role == model.RoleStudent && actor.ID == record.OwnerID {
			return apperrors.Conflict("only pending records can be deleted by their owner")
		}
		return apperrors.Authorization("not authorized to delete this record")
	}

	if err := s.blobs.Delete(ctx, record.Document.BlobKey); err != nil {
		return err
	}

	var expected *model.RecordStatus
	if actor.Role == model.RoleStudent {
		pending := model.StatusPending
		expected = &pending
	}
	if err := s.repo.DeleteIf(ctx, recordID, expected); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, record.Fingerprint)

	s.log.Info().
		Str("record_id", recordID).
		Str("actor_id", actor.ID).
		Str("role", string(actor.Role)).
		Msg("Academic record deleted")

	return nil
}

func (s *Service) validateUpload(up Upload) (string, error) {
	if up.Content == nil || up.Size == 0 {
		return "", apperrors.Validation("file", "no file was uploaded")
	}
	if up.Size > s.cfg.Records.MaxUploadSize {
		return "", apperrors.Validation("file", "file exceeds the maximum allowed size")
	}
	format, ok := allowedFormats[up.ContentType]
	if !ok {
		return "", apperrors.Validation("file", "only pdf, doc and docx files are accepted")
	}
	return format, nil
}

// writeDenied maps a failed mutation guard to the right error: actors
// with no visibility at all get not-found so mutations cannot be used as
// an existence oracle either.
func (s *Service) writeDenied(actor model.Actor, record *model.AcademicRecord, message string) error {
	if access.Evaluate(actor, record) == access.Deny {
		return apperrors.NotFound("academic record not found")
	}
	return apperrors.Authorization(message)
}

// attachDocument adds the original format and a fresh signed link to a
// view the caller is already cleared to see the document of. Link
// minting failures here are logged and leave the view metadata-only;
// the record operation itself has already succeeded.
func (s *Service) attachDocument(ctx context.Context, view *model.RecordView, record *model.AcademicRecord) {
	url, expiresAt, err := s.blobs.SignedURL(ctx, record.Document.BlobKey, s.cfg.Records.SignedURLTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("record_id", record.ID).Msg("Failed to mint signed link")
		return
	}
	view.OriginalFormat = record.Document.OriginalFormat
	view.SignedURL = &model.SignedLink{URL: url, ExpiresAt: expiresAt}
}

func (s *Service) viewsWithDocuments(ctx context.Context, records []model.AcademicRecord) []model.RecordView {
	views := make([]model.RecordView, 0, len(records))
	for i := range records {
		view := model.NewRecordView(&records[i])
		s.attachDocument(ctx, &view, &records[i])
		views = append(views, view)
	}
	return views
}

func (s *Service) checkResponseFromEntry(ctx context.Context, fp string, entry *model.CheckHashCacheEntry) (*model.CheckHashResponse, error) {
	if !entry.IsValid {
		return invalidCheckResponse(), nil
	}

	record, err := s.repo.GetByID(ctx, entry.RecordID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			// The record behind the cached positive is gone.
			s.cache.Invalidate(ctx, fp)
			return invalidCheckResponse(), nil
		}
		// A transient repository failure is an error, not a "no".
		return nil, err
	}
	if record.Status != model.StatusVerified || record.Fingerprint != fp {
		// The cached positive went stale inside the TTL window.
		s.cache.Invalidate(ctx, fp)
		return invalidCheckResponse(), nil
	}
	return s.validCheckResponse(ctx, record)
}

func (s *Service) validCheckResponse(ctx context.Context, record *model.AcademicRecord) (*model.CheckHashResponse, error) {
	view := model.NewRecordView(record)
	s.attachDocument(ctx, &view, record)
	return &model.CheckHashResponse{
		IsValid: true,
		Record:  &view,
		Message: "Record is verified",
	}, nil
}

func invalidCheckResponse() *model.CheckHashResponse {
	return &model.CheckHashResponse{
		IsValid: false,
		Message: "No verified record matches this hash",
	}
}

// cleanupBlob is the best-effort compensating delete. Failures are
// logged and never mask the error that triggered the cleanup.
func (s *Service) cleanupBlob(ctx context.Context, blobKey, reason string) {
	if err := s.blobs.Delete(ctx, blobKey); err != nil {
		s.log.Error().Err(err).
			Str("blob_key", blobKey).
			Str("reason", reason).
			Msg("Compensating blob cleanup failed, orphan left behind")
	}
}

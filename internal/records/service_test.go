package records

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/huseinhashi/academic-record/internal/cache"
	"github.com/huseinhashi/academic-record/internal/config"
	"github.com/huseinhashi/academic-record/internal/model"
	apperrors "github.com/huseinhashi/academic-record/pkg/errors"
)

// mockRepo is an in-memory db.Repository with the same conditional
// write semantics as the mongo implementation.
type mockRepo struct {
	records    map[string]*model.AcademicRecord
	insertErr  error
	replaceErr error
	getErr     error
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[string]*model.AcademicRecord)}
}

func (m *mockRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (m *mockRepo) Insert(ctx context.Context, record *model.AcademicRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*model.AcademicRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[id]
	if !ok {
		return nil, apperrors.NotFound("academic record not found")
	}
	cp := *record
	return &cp, nil
}

func (m *mockRepo) GetVerifiedByFingerprint(ctx context.Context, fp string) (*model.AcademicRecord, error) {
	for _, record := range m.records {
		if record.Fingerprint == fp && record.Status == model.StatusVerified {
			cp := *record
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("no verified record matches this fingerprint")
}

func (m *mockRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.AcademicRecord, error) {
	var out []model.AcademicRecord
	for _, record := range m.records {
		if record.OwnerID == ownerID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockRepo) ListByIssuer(ctx context.Context, issuerID string, status *model.RecordStatus) ([]model.AcademicRecord, error) {
	var out []model.AcademicRecord
	for _, record := range m.records {
		if record.IssuerID != issuerID {
			continue
		}
		if status != nil && record.Status != *status {
			continue
		}
		out = append(out, *record)
	}
	return out, nil
}

func (m *mockRepo) UpdateStatusIf(ctx context.Context, id string, from, to model.RecordStatus, reason *string) (*model.AcademicRecord, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, apperrors.NotFound("academic record not found")
	}
	if record.Status != from {
		return nil, apperrors.Conflict("record is not in the required status for this operation")
	}
	if to == model.StatusVerified {
		for _, other := range m.records {
			if other.ID != id && other.Fingerprint == record.Fingerprint && other.Status == model.StatusVerified {
				return nil, apperrors.Conflict("a verified record with this fingerprint already exists")
			}
		}
	}
	record.Status = to
	record.RejectionReason = reason
	record.UpdatedAt = time.Now().UTC()
	cp := *record
	return &cp, nil
}

func (m *mockRepo) ReplaceDocumentIf(ctx context.Context, id string, from model.RecordStatus, doc model.Document, fp string) (*model.AcademicRecord, error) {
	if m.replaceErr != nil {
		return nil, m.replaceErr
	}
	record, ok := m.records[id]
	if !ok {
		return nil, apperrors.NotFound("academic record not found")
	}
	if record.Status != from {
		return nil, apperrors.Conflict("record is not in the required status for this operation")
	}
	record.Document = doc
	record.Fingerprint = fp
	record.Status = model.StatusPending
	record.RejectionReason = nil
	record.UpdatedAt = time.Now().UTC()
	cp := *record
	return &cp, nil
}

func (m *mockRepo) DeleteIf(ctx context.Context, id string, expected *model.RecordStatus) error {
	record, ok := m.records[id]
	if !ok {
		return apperrors.NotFound("academic record not found")
	}
	if expected != nil && record.Status != *expected {
		return apperrors.Conflict("record is not in the required status for this operation")
	}
	delete(m.records, id)
	return nil
}

// mockBlobStore records stored and deleted keys.
type mockBlobStore struct {
	stored   map[string][]byte
	deleted  []string
	storeErr error
	signErr  error
	signSeq  int
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{stored: make(map[string][]byte)}
}

func (m *mockBlobStore) Store(ctx context.Context, key string, data io.Reader, contentType string) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	m.stored[key] = buf.Bytes()
	return nil
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	delete(m.stored, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockBlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if m.signErr != nil {
		return "", time.Time{}, m.signErr
	}
	if _, ok := m.stored[key]; !ok {
		return "", time.Time{}, apperrors.Storage("blob not retrievable", fmt.Errorf("missing key %s", key))
	}
	m.signSeq++
	return fmt.Sprintf("https://blobs.test/%s?sig=%d", key, m.signSeq), time.Now().Add(ttl), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Records: config.RecordsConfig{
			MaxUploadSize: 10 << 20,
			SignedURLTTL:  time.Hour,
			CheckCacheTTL: 30 * time.Second,
		},
	}
}

func newTestService() (*Service, *mockRepo, *mockBlobStore) {
	repo := newMockRepo()
	blobs := newMockBlobStore()
	return NewService(repo, blobs, nil, testConfig()), repo, blobs
}

func pdfUpload() Upload {
	return Upload{
		Content:     strings.NewReader("%PDF-1.4 fake"),
		Size:        13,
		ContentType: "application/pdf",
	}
}

var (
	student     = model.Actor{ID: "student-1", Role: model.RoleStudent}
	institution = model.Actor{ID: "inst-1", Role: model.RoleInstitution}
	admin       = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

func submit(t *testing.T, svc *Service) *model.RecordView {
	t.Helper()
	view, err := svc.Submit(context.Background(), student, "inst-1", model.TypeDegree, "BSc Computer Science", pdfUpload())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return view
}

func TestSubmitCreatesPendingRecord(t *testing.T) {
	svc, repo, blobs := newTestService()

	view := submit(t, svc)

	if view.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", view.Status)
	}
	if view.Fingerprint == "" {
		t.Error("fingerprint not computed")
	}
	if view.SignedURL == nil {
		t.Error("submit response should carry an immediate signed link")
	}
	if len(blobs.stored) != 1 {
		t.Errorf("stored blobs = %d, want 1", len(blobs.stored))
	}
	stored, err := repo.GetByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if stored.OwnerID != student.ID || stored.IssuerID != "inst-1" {
		t.Errorf("owner/issuer = %s/%s, want student-1/inst-1", stored.OwnerID, stored.IssuerID)
	}
}

func TestSubmitRejectsBadUploads(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		up   Upload
	}{
		{"missing file", Upload{}},
		{"oversized file", Upload{Content: strings.NewReader("x"), Size: 11 << 20, ContentType: "application/pdf"}},
		{"wrong content type", Upload{Content: strings.NewReader("x"), Size: 1, ContentType: "image/png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, student, "inst-1", model.TypeDegree, "Title", tt.up)
			if !apperrors.IsKind(err, apperrors.KindValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}

func TestSubmitCleansUpBlobOnPersistFailure(t *testing.T) {
	svc, repo, blobs := newTestService()
	repo.insertErr = fmt.Errorf("write concern failed")

	_, err := svc.Submit(context.Background(), student, "inst-1", model.TypeDegree, "Title", pdfUpload())
	if err == nil {
		t.Fatal("expected persist error")
	}
	if len(blobs.stored) != 0 {
		t.Errorf("blob not cleaned up after failed persist: %d left", len(blobs.stored))
	}
	if len(blobs.deleted) != 1 {
		t.Errorf("compensating delete count = %d, want 1", len(blobs.deleted))
	}
}

func TestDecideVerify(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	updated, err := svc.Decide(ctx, institution, view.ID, ActionVerify, "")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if updated.Status != model.StatusVerified {
		t.Errorf("status = %s, want verified", updated.Status)
	}
	if updated.RejectionReason != nil {
		t.Error("rejection reason must be cleared on verification")
	}

	// A second decision on the now-verified record conflicts.
	_, err = svc.Decide(ctx, institution, view.ID, ActionVerify, "")
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("second verify error = %v, want conflict", err)
	}
}

func TestDecideRejectRequiresReason(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	_, err := svc.Decide(ctx, institution, view.ID, ActionReject, "")
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Errorf("error = %v, want validation error", err)
	}

	updated, err := svc.Decide(ctx, institution, view.ID, ActionReject, "illegible scan")
	if err != nil {
		t.Fatalf("Decide(reject) error = %v", err)
	}
	if updated.Status != model.StatusRejected {
		t.Errorf("status = %s, want rejected", updated.Status)
	}
	if updated.RejectionReason == nil || *updated.RejectionReason != "illegible scan" {
		t.Errorf("rejection reason = %v, want 'illegible scan'", updated.RejectionReason)
	}
}

func TestDecideAuthorization(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	// The owning student has visibility but no decision rights.
	_, err := svc.Decide(ctx, student, view.ID, ActionVerify, "")
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Errorf("owner decide error = %v, want authorization error", err)
	}

	// An unrelated institution has no visibility: existence must not leak.
	other := model.Actor{ID: "inst-2", Role: model.RoleInstitution}
	_, err = svc.Decide(ctx, other, view.ID, ActionVerify, "")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("unrelated institution decide error = %v, want not-found", err)
	}
}

func TestResubmitReplacesDocumentAndFingerprint(t *testing.T) {
	svc, repo, blobs := newTestService()
	ctx := context.Background()
	view := submit(t, svc)
	oldFP := view.Fingerprint

	oldRecord, _ := repo.GetByID(ctx, view.ID)
	oldKey := oldRecord.Document.BlobKey

	if _, err := svc.Decide(ctx, institution, view.ID, ActionReject, "blurry"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	updated, err := svc.Resubmit(ctx, student, view.ID, pdfUpload())
	if err != nil {
		t.Fatalf("Resubmit() error = %v", err)
	}

	if updated.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", updated.Status)
	}
	if updated.Fingerprint == oldFP {
		t.Error("resubmission must produce a new fingerprint")
	}
	if updated.RejectionReason != nil {
		t.Error("rejection reason must be cleared on resubmission")
	}
	if _, ok := blobs.stored[oldKey]; ok {
		t.Error("old blob must no longer be retrievable after resubmission")
	}
}

func TestResubmitPreconditions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	// Still pending: not resubmittable.
	_, err := svc.Resubmit(ctx, student, view.ID, pdfUpload())
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("pending resubmit error = %v, want conflict", err)
	}

	if _, err := svc.Decide(ctx, institution, view.ID, ActionReject, "blurry"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	other := model.Actor{ID: "student-2", Role: model.RoleStudent}
	_, err = svc.Resubmit(ctx, other, view.ID, pdfUpload())
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("non-owner resubmit error = %v, want not-found", err)
	}
}

func TestResubmitCleansUpNewBlobOnCommitFailure(t *testing.T) {
	svc, repo, blobs := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	oldRecord, _ := repo.GetByID(ctx, view.ID)
	oldKey := oldRecord.Document.BlobKey

	if _, err := svc.Decide(ctx, institution, view.ID, ActionReject, "blurry"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	repo.replaceErr = fmt.Errorf("write concern failed")
	if _, err := svc.Resubmit(ctx, student, view.ID, pdfUpload()); err == nil {
		t.Fatal("expected commit error")
	}

	// The new blob is compensated away; the old blob must survive, so
	// the record never loses both copies.
	if _, ok := blobs.stored[oldKey]; !ok {
		t.Error("old blob must still be stored after a failed resubmission")
	}
	if len(blobs.stored) != 1 {
		t.Errorf("stored blobs = %d, want only the old one", len(blobs.stored))
	}
	for _, key := range blobs.deleted {
		if key == oldKey {
			t.Error("old blob must not be deleted when the commit fails")
		}
	}
	if len(blobs.deleted) != 1 {
		t.Errorf("deleted blobs = %d, want exactly the new one", len(blobs.deleted))
	}
}

func TestDecideVerifyConflictsOnDuplicateVerifiedFingerprint(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	// Two records transiently sharing a fingerprint: uniqueness is
	// scoped to verified status, so only one of them may ever verify.
	now := time.Now().UTC()
	for i, status := range []model.RecordStatus{model.StatusVerified, model.StatusPending} {
		record := &model.AcademicRecord{
			ID:          fmt.Sprintf("rec-%d", i+1),
			OwnerID:     student.ID,
			IssuerID:    institution.ID,
			RecordType:  model.TypeDegree,
			Title:       "BSc Computer Science",
			Document:    model.Document{BlobKey: fmt.Sprintf("records/blob-%d", i+1), OriginalFormat: "pdf"},
			Fingerprint: "shared-fingerprint",
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Insert(ctx, record); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}

	_, err := svc.Decide(ctx, institution, "rec-2", ActionVerify, "")
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("verify of duplicate fingerprint error = %v, want conflict", err)
	}

	// The loser's record is unchanged.
	record, _ := repo.GetByID(ctx, "rec-2")
	if record.Status != model.StatusPending {
		t.Errorf("status = %s, want pending after conflicted verify", record.Status)
	}
}

func TestReadVisibility(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	// Owner reads own pending record with document.
	got, err := svc.Read(ctx, student, view.ID)
	if err != nil {
		t.Fatalf("owner Read() error = %v", err)
	}
	if got.SignedURL == nil {
		t.Error("owner read should include a signed link")
	}

	// Verified company denied on a pending record, surfaced as not-found.
	company := model.Actor{ID: "comp-1", Role: model.RoleCompany, Verified: true}
	if _, err := svc.Read(ctx, company, view.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("company read on pending error = %v, want not-found", err)
	}

	if _, err := svc.Decide(ctx, institution, view.ID, ActionVerify, ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// Verified company sees the verified record.
	if _, err := svc.Read(ctx, company, view.ID); err != nil {
		t.Errorf("verified company read error = %v", err)
	}

	// An unverified company stays denied even on verified records.
	unverified := model.Actor{ID: "comp-2", Role: model.RoleCompany, Verified: false}
	if _, err := svc.Read(ctx, unverified, view.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("unverified company read error = %v, want not-found", err)
	}
}

func TestReadMintsFreshLinks(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	first, err := svc.Read(ctx, student, view.ID)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	second, err := svc.Read(ctx, student, view.ID)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if first.SignedURL.URL == second.SignedURL.URL {
		t.Error("each read must mint an independent signed link")
	}
}

func TestCheckFingerprintOracle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	// Pending record: invalid, and no record data leaks.
	resp, err := svc.CheckFingerprint(ctx, view.Fingerprint)
	if err != nil {
		t.Fatalf("CheckFingerprint() error = %v", err)
	}
	if resp.IsValid {
		t.Error("pending record must not validate")
	}
	if resp.Record != nil {
		t.Error("invalid check must not return record data")
	}

	// Unknown fingerprint is indistinguishable from an unverified one.
	missing, err := svc.CheckFingerprint(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("CheckFingerprint() error = %v", err)
	}
	if missing.IsValid || missing.Message != resp.Message {
		t.Error("missing and unverified fingerprints must look identical")
	}

	if _, err := svc.Decide(ctx, institution, view.ID, ActionVerify, ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	resp, err = svc.CheckFingerprint(ctx, view.Fingerprint)
	if err != nil {
		t.Fatalf("CheckFingerprint() error = %v", err)
	}
	if !resp.IsValid {
		t.Error("verified record must validate")
	}
	if resp.Record == nil || resp.Record.SignedURL == nil {
		t.Error("valid check should return the record with a signed link")
	}
}

// memStore is an in-memory cache.Store for exercising the cached
// fingerprint-check paths.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok := m.data[key]
	return data, ok, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func newCachedTestService() (*Service, *mockRepo, *memStore) {
	repo := newMockRepo()
	blobs := newMockBlobStore()
	store := newMemStore()
	svc := NewService(repo, blobs, cache.NewCheckCache(store, 30*time.Second), testConfig())
	return svc, repo, store
}

func TestCheckFingerprintPropagatesRepositoryErrors(t *testing.T) {
	svc, repo, _ := newCachedTestService()
	ctx := context.Background()
	view := submit(t, svc)

	if _, err := svc.Decide(ctx, institution, view.ID, ActionVerify, ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// Prime the cache with a positive outcome.
	resp, err := svc.CheckFingerprint(ctx, view.Fingerprint)
	if err != nil || !resp.IsValid {
		t.Fatalf("priming check = (%v, %v), want valid", resp, err)
	}

	// A transient repository failure during revalidation must surface
	// as an error, never as a false "not verified".
	repo.getErr = fmt.Errorf("connection reset")
	resp, err = svc.CheckFingerprint(ctx, view.Fingerprint)
	if err == nil {
		t.Fatal("expected repository error to propagate")
	}
	if resp != nil {
		t.Errorf("response = %+v, want none alongside the error", resp)
	}

	// Once the repository recovers the oracle answers yes again.
	repo.getErr = nil
	resp, err = svc.CheckFingerprint(ctx, view.Fingerprint)
	if err != nil || !resp.IsValid {
		t.Errorf("post-recovery check = (%v, %v), want valid", resp, err)
	}
}

func TestCheckFingerprintStaleCachedPositive(t *testing.T) {
	svc, repo, store := newCachedTestService()
	ctx := context.Background()
	view := submit(t, svc)

	if _, err := svc.Decide(ctx, institution, view.ID, ActionVerify, ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if resp, err := svc.CheckFingerprint(ctx, view.Fingerprint); err != nil || !resp.IsValid {
		t.Fatalf("priming check = (%v, %v), want valid", resp, err)
	}

	// Flip the record under the cache's feet, bypassing the service and
	// its invalidation hooks.
	repo.records[view.ID].Status = model.StatusRejected

	resp, err := svc.CheckFingerprint(ctx, view.Fingerprint)
	if err != nil {
		t.Fatalf("CheckFingerprint() error = %v", err)
	}
	if resp.IsValid || resp.Record != nil {
		t.Error("stale cached positive must revalidate to invalid")
	}
	if len(store.data) != 0 {
		t.Errorf("stale entry must be invalidated, %d keys left", len(store.data))
	}
}

func TestCheckFingerprintCachedPositiveForDeletedRecord(t *testing.T) {
	svc, repo, _ := newCachedTestService()
	ctx := context.Background()
	view := submit(t, svc)

	if _, err := svc.Decide(ctx, institution, view.ID, ActionVerify, ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if resp, err := svc.CheckFingerprint(ctx, view.Fingerprint); err != nil || !resp.IsValid {
		t.Fatalf("priming check = (%v, %v), want valid", resp, err)
	}

	// The record vanishes behind the cache's back.
	delete(repo.records, view.ID)

	resp, err := svc.CheckFingerprint(ctx, view.Fingerprint)
	if err != nil {
		t.Fatalf("CheckFingerprint() error = %v", err)
	}
	if resp.IsValid {
		t.Error("a deleted record must not validate from the cache")
	}
}

func TestDeleteRules(t *testing.T) {
	svc, repo, blobs := newTestService()
	ctx := context.Background()

	// Owner deletes own pending record; blob goes too.
	view := submit(t, svc)
	record, _ := repo.GetByID(ctx, view.ID)
	if err := svc.Delete(ctx, student, view.ID); err != nil {
		t.Fatalf("owner delete error = %v", err)
	}
	if _, ok := blobs.stored[record.Document.BlobKey]; ok {
		t.Error("blob must be deleted with the record")
	}
	if _, err := repo.GetByID(ctx, view.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Error("record must be gone after delete")
	}

	// Owner cannot delete once verified; admin can.
	view = submit(t, svc)
	if _, err := svc.Decide(ctx, institution, view.ID, ActionVerify, ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := svc.Delete(ctx, student, view.ID); !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("owner delete of verified record error = %v, want conflict", err)
	}
	if err := svc.Delete(ctx, admin, view.ID); err != nil {
		t.Errorf("admin delete error = %v", err)
	}

	// Unrelated actors get not-found, not a denial.
	view = submit(t, svc)
	other := model.Actor{ID: "student-2", Role: model.RoleStudent}
	if err := svc.Delete(ctx, other, view.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("unrelated delete error = %v, want not-found", err)
	}
}

func TestListByIssuerAuthorization(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	submit(t, svc)

	views, err := svc.ListByIssuer(ctx, institution, "inst-1", nil)
	if err != nil {
		t.Fatalf("issuer list error = %v", err)
	}
	if len(views) != 1 {
		t.Errorf("issuer list length = %d, want 1", len(views))
	}

	if _, err := svc.ListByIssuer(ctx, admin, "inst-1", nil); err != nil {
		t.Errorf("admin list error = %v", err)
	}

	other := model.Actor{ID: "inst-2", Role: model.RoleInstitution}
	if _, err := svc.ListByIssuer(ctx, other, "inst-1", nil); !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Errorf("other institution list error = %v, want authorization error", err)
	}

	pending := model.StatusPending
	views, err = svc.ListByIssuer(ctx, institution, "inst-1", &pending)
	if err != nil || len(views) != 1 {
		t.Errorf("status-filtered list = (%d, %v), want 1 record", len(views), err)
	}
}

func TestListByStudentFiltersPerViewer(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	view := submit(t, svc)

	company := model.Actor{ID: "comp-1", Role: model.RoleCompany, Verified: true}

	// Nothing verified yet: the company sees an empty list, not an error.
	views, err := svc.ListByStudent(ctx, company, student.ID)
	if err != nil {
		t.Fatalf("company list error = %v", err)
	}
	if len(views) != 0 {
		t.Errorf("company sees %d records before verification, want 0", len(views))
	}

	if _, err := svc.Decide(ctx, institution, view.ID, ActionVerify, ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	views, err = svc.ListByStudent(ctx, company, student.ID)
	if err != nil {
		t.Fatalf("company list error = %v", err)
	}
	if len(views) != 1 {
		t.Errorf("company sees %d records after verification, want 1", len(views))
	}

	// The owner always sees everything.
	views, err = svc.ListMine(ctx, student)
	if err != nil || len(views) != 1 {
		t.Errorf("owner list = (%d, %v), want 1 record", len(views), err)
	}
}

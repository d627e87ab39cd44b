package db

import (
	"context"
	"time"

	"github.com/huseinhashi/academic-record/internal/model"
	apperrors "github.com/huseinhashi/academic-record/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordsCollection = "records"

// Repository persists academic records. Status transitions are
// conditional updates keyed on the expected current status, so two
// concurrent writers cannot both succeed; the loser sees a conflict.
type Repository interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, record *model.AcademicRecord) error
	GetByID(ctx context.Context, id string) (*model.AcademicRecord, error)
	GetVerifiedByFingerprint(ctx context.Context, fingerprint string) (*model.AcademicRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.AcademicRecord, error)
	ListByIssuer(ctx context.Context, issuerID string, status *model.RecordStatus) ([]model.AcademicRecord, error)
	UpdateStatusIf(ctx context.Context, id string, from, to model.RecordStatus, rejectionReason *string) (*model.AcademicRecord, error)
	ReplaceDocumentIf(ctx context.Context, id string, from model.RecordStatus, doc model.Document, fingerprint string) (*model.AcademicRecord, error)
	DeleteIf(ctx context.Context, id string, expectedStatus *model.RecordStatus) error
}

type repository struct {
	col *mongo.Collection
}

func NewRepository(database *mongo.Database) Repository {
	return &repository{col: database.Collection(recordsCollection)}
}

// EnsureIndexes creates the persisted-layout indexes: a unique index over
// fingerprint scoped to verified records (this is what enforces the
// verified-uniqueness invariant, not an application-level check), plus
// lookup indexes over owner and issuer.
func (r *repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "fingerprint", Value: 1}},
			Options: options.Index().
				SetName("uniq_verified_fingerprint").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: string(model.StatusVerified)}}),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index().SetName("idx_owner"),
		},
		{
			Keys:    bson.D{{Key: "issuerId", Value: 1}},
			Options: options.Index().SetName("idx_issuer"),
		},
	})
	return err
}

func (r *repository) Insert(ctx context.Context, record *model.AcademicRecord) error {
	_, err := r.col.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("a verified record with this fingerprint already exists")
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*model.AcademicRecord, error) {
	var record model.AcademicRecord
	err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("academic record not found")
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) GetVerifiedByFingerprint(ctx context.Context, fingerprint string) (*model.AcademicRecord, error) {
	filter := bson.D{
		{Key: "fingerprint", Value: fingerprint},
		{Key: "status", Value: string(model.StatusVerified)},
	}

	var record model.AcademicRecord
	err := r.col.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NotFound("no verified record matches this fingerprint")
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string) ([]model.AcademicRecord, error) {
	return r.list(ctx, bson.D{{Key: "ownerId", Value: ownerID}})
}

func (r *repository) ListByIssuer(ctx context.Context, issuerID string, status *model.RecordStatus) ([]model.AcademicRecord, error) {
	filter := bson.D{{Key: "issuerId", Value: issuerID}}
	if status != nil {
		filter = append(filter, bson.E{Key: "status", Value: string(*status)})
	}
	return r.list(ctx, filter)
}

func (r *repository) list(ctx context.Context, filter bson.D) ([]model.AcademicRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.AcademicRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateStatusIf applies a status transition only if the record is still
// in the expected source status. rejectionReason is stored on rejection
// and cleared otherwise.
func (r *repository) UpdateStatusIf(ctx context.Context, id string, from, to model.RecordStatus, rejectionReason *string) (*model.AcademicRecord, error) {
	set := bson.D{
		{Key: "status", Value: string(to)},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}

	var update bson.D
	if rejectionReason != nil {
		set = append(set, bson.E{Key: "rejectionReason", Value: *rejectionReason})
		update = bson.D{{Key: "$set", Value: set}}
	} else {
		update = bson.D{
			{Key: "$set", Value: set},
			{Key: "$unset", Value: bson.D{{Key: "rejectionReason", Value: ""}}},
		}
	}

	return r.findOneAndUpdateIf(ctx, id, from, update)
}

// ReplaceDocumentIf swaps in a new document and fingerprint and resets
// the record to pending, only if the record is still in the expected
// source status. Used by resubmission (rejected -> pending).
func (r *repository) ReplaceDocumentIf(ctx context.Context, id string, from model.RecordStatus, doc model.Document, fingerprint string) (*model.AcademicRecord, error) {
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "document", Value: doc},
			{Key: "fingerprint", Value: fingerprint},
			{Key: "status", Value: string(model.StatusPending)},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}},
		{Key: "$unset", Value: bson.D{{Key: "rejectionReason", Value: ""}}},
	}

	return r.findOneAndUpdateIf(ctx, id, from, update)
}

func (r *repository) findOneAndUpdateIf(ctx context.Context, id string, from model.RecordStatus, update bson.D) (*model.AcademicRecord, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: string(from)},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record model.AcademicRecord
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record)
	if err == nil {
		return &record, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return nil, apperrors.Conflict("a verified record with this fingerprint already exists")
	}
	if err == mongo.ErrNoDocuments {
		return nil, r.missOrConflict(ctx, id)
	}
	return nil, err
}

func (r *repository) DeleteIf(ctx context.Context, id string, expectedStatus *model.RecordStatus) error {
	filter := bson.D{{Key: "_id", Value: id}}
	if expectedStatus != nil {
		filter = append(filter, bson.E{Key: "status", Value: string(*expectedStatus)})
	}

	result, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict disambiguates a conditional write that matched nothing:
// either the record is gone, or it exists in a different status than the
// caller expected.
func (r *repository) missOrConflict(ctx context.Context, id string) error {
	count, err := r.col.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("academic record not found")
	}
	return apperrors.Conflict("record is not in the required status for this operation")
}

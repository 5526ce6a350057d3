package importitems

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	mg "creditdesk/internal/config/connections/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const ImportRecordsCollection = "import_records"

const (
	RecordStatusParsed  = "parsed"
	RecordStatusRunning = "running"
	RecordStatusDone    = "done"
	RecordStatusFailed  = "failed"
)

var ErrRecordNotFound = errors.New("import record not found")

// Record is one uploaded customers or loans sheet and the outcome of its
// import. Rows counts rows handed to the processor; Rejected counts rows the
// reader could not parse.
type Record struct {
	ID        any        `bson:"_id,omitempty" json:"id"`
	Status    string     `bson:"status" json:"status"`
	Type      ModelType  `bson:"type" json:"type"`
	FileName  string     `bson:"file_name,omitempty" json:"file_name,omitempty"`
	Path      string     `bson:"path" json:"path"`
	Bucket    string     `bson:"bucket,omitempty" json:"bucket,omitempty"`
	Key       string     `bson:"key,omitempty" json:"key,omitempty"`
	SizeBytes int64      `bson:"size_bytes" json:"size_bytes"`
	Rows      int        `bson:"rows" json:"rows"`
	Rejected  int        `bson:"rejected" json:"rejected"`
	Errors    string     `bson:"errors,omitempty" json:"errors,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	StartedAt *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
}

// NewUploadRecord describes a sheet stored at bucket/key.
func NewUploadRecord(typ ModelType, bucket, key string, size int64) Record {
	return Record{
		Status:    RecordStatusParsed,
		Type:      typ,
		FileName:  path.Base(key),
		Path:      fmt.Sprintf("s3://%s/%s", bucket, key),
		Bucket:    bucket,
		Key:       key,
		SizeBytes: size,
	}
}

func records(m *mg.Mongo) (*mongo.Collection, error) {
	if coll := m.Collection(ImportRecordsCollection); coll != nil {
		return coll, nil
	}
	return nil, mongo.ErrClientDisconnected
}

// recordFilter matches an id given either as an ObjectID hex string or as
// the raw string it was stored with.
func recordFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func InsertImportRecord(ctx context.Context, m *mg.Mongo, rec Record) (*mongo.InsertOneResult, error) {
	if _, ok := ParseModelType(rec.Type.String()); !ok {
		return nil, fmt.Errorf("unknown import type %q", rec.Type)
	}
	coll, err := records(m)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = RecordStatusParsed
	}
	return coll.InsertOne(ctx, rec)
}

func FindImportRecordByID(ctx context.Context, m *mg.Mongo, id string) (Record, error) {
	var out Record
	coll, err := records(m)
	if err != nil {
		return out, err
	}
	err = coll.FindOne(ctx, recordFilter(id)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return out, err
}

// UpdateImportRecordStatus moves a record to status. Moving to running also
// stamps started_at.
func UpdateImportRecordStatus(ctx context.Context, m *mg.Mongo, id, status string) error {
	if id == "" || status == "" {
		return errors.New("import record id and status are required")
	}
	now := time.Now().UTC()
	set := bson.M{"status": status, "updated_at": now}
	if status == RecordStatusRunning {
		set["started_at"] = now
	}
	return updateRecord(ctx, m, id, set)
}

// FinishImportRecord stores the outcome of a run. A non-nil cause marks the
// record failed.
func FinishImportRecord(ctx context.Context, m *mg.Mongo, id string, rows, rejected int, cause error) error {
	if id == "" {
		return errors.New("import record id is required")
	}
	set := bson.M{
		"status":     RecordStatusDone,
		"rows":       rows,
		"rejected":   rejected,
		"updated_at": time.Now().UTC(),
	}
	if cause != nil {
		set["status"] = RecordStatusFailed
		set["errors"] = cause.Error()
	}
	return updateRecord(ctx, m, id, set)
}

func updateRecord(ctx context.Context, m *mg.Mongo, id string, set bson.M) error {
	coll, err := records(m)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx, recordFilter(id), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return nil
}

// MongoRecords exposes the record helpers bound to one connection.
type MongoRecords struct {
	MG *mg.Mongo
}

func NewMongoRecords(m *mg.Mongo) *MongoRecords { return &MongoRecords{MG: m} }

func (r *MongoRecords) Find(ctx context.Context, id string) (Record, error) {
	return FindImportRecordByID(ctx, r.MG, id)
}

func (r *MongoRecords) SetStatus(ctx context.Context, id, status string) error {
	return UpdateImportRecordStatus(ctx, r.MG, id, status)
}

func (r *MongoRecords) Finish(ctx context.Context, id string, rows, rejected int, cause error) error {
	return FinishImportRecord(ctx, r.MG, id, rows, rejected, cause)
}

package importitems

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mg "creditdesk/internal/config/connections/mongo"
	"creditdesk/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ImportRecordItemsCollection = "import_record_items"

type Item struct {
	ImportRecordID string    `bson:"import_record_id" json:"import_record_id"`
	ModelType      string    `bson:"model_type" json:"model_type"`
	ModelID        string    `bson:"model_id" json:"model_id"`
	Payload        string    `bson:"payload" json:"payload"`
	Status         string    `bson:"status" json:"status"`
	Errors         string    `bson:"errors" json:"errors"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

func InsertItem(ctx context.Context, m *mg.Mongo, item Item) (*mongo.InsertOneResult, error) {
	coll := m.Collection(ImportRecordItemsCollection)
	if coll == nil {
		return nil, mongo.ErrClientDisconnected
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	doc := bson.D{
		{Key: "import_record_id", Value: item.ImportRecordID},
		{Key: "model_type", Value: item.ModelType},
		{Key: "model_id", Value: item.ModelID},
		{Key: "payload", Value: item.Payload},
		{Key: "status", Value: item.Status},
		{Key: "errors", Value: item.Errors},
		{Key: "created_at", Value: item.CreatedAt},
		{Key: "updated_at", Value: item.UpdatedAt},
	}

	return coll.InsertOne(ctx, doc, options.InsertOne())
}

// MongoItemLog writes row outcomes of an import to import_record_items.
type MongoItemLog struct {
	MG *mg.Mongo
}

func NewMongoItemLog(m *mg.Mongo) *MongoItemLog {
	return &MongoItemLog{MG: m}
}

func (l *MongoItemLog) LogItem(ctx context.Context, r ports.ItemResult) {
	if l == nil || l.MG == nil || l.MG.Database == nil {
		return
	}

	b, err := json.Marshal(r.Payload)
	if err != nil {
		b = []byte("{}")
	}

	if _, err := InsertItem(ctx, l.MG, Item{
		ImportRecordID: r.ImportRecordID,
		ModelType:      r.ModelType,
		ModelID:        r.ModelID,
		Payload:        string(b),
		Status:         r.Status,
		Errors:         r.Errors,
	}); err != nil {
		log.Printf("[PROC][%s][MONGO][ERR] id=%s status=%s err=%v", r.ModelType, r.ModelID, r.Status, err)
	}
}

func (l *MongoItemLog) MarkDone(ctx context.Context, importRecordID string) error {
	if importRecordID == "" {
		return nil
	}
	return UpdateImportRecordStatus(ctx, l.MG, importRecordID, RecordStatusDone)
}

var _ ports.ItemLog = (*MongoItemLog)(nil)

package decisions

import (
	"context"
	"time"

	mg "creditdesk/internal/config/connections/mongo"
	"creditdesk/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DecisionsCollection = "credit_decisions"

type document struct {
	ID                 string    `bson:"_id"`
	Operation          string    `bson:"operation"`
	CustomerID         int64     `bson:"customer_id"`
	LoanAmount         string    `bson:"loan_amount"`
	RequestedRate      string    `bson:"interest_rate"`
	CorrectedRate      string    `bson:"corrected_interest_rate"`
	Tenure             int       `bson:"tenure"`
	Score              int       `bson:"credit_score"`
	Approved           bool      `bson:"approval"`
	Reason             string    `bson:"reason,omitempty"`
	MonthlyInstallment string    `bson:"monthly_installment"`
	LoanID             *int64    `bson:"loan_id,omitempty"`
	DecidedAt          time.Time `bson:"decided_at"`
}

// MongoLog appends decisions to the credit_decisions collection.
type MongoLog struct {
	MG *mg.Mongo
}

func NewMongoLog(m *mg.Mongo) *MongoLog {
	return &MongoLog{MG: m}
}

func toDocument(e ports.DecisionEntry) document {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DecidedAt.IsZero() {
		e.DecidedAt = time.Now().UTC()
	}
	return document{
		ID:                 e.ID,
		Operation:          e.Operation,
		CustomerID:         e.CustomerID,
		LoanAmount:         e.LoanAmount,
		RequestedRate:      e.RequestedRate,
		CorrectedRate:      e.CorrectedRate,
		Tenure:             e.Tenure,
		Score:              e.Score,
		Approved:           e.Approved,
		Reason:             e.Reason,
		MonthlyInstallment: e.MonthlyInstallment,
		LoanID:             e.LoanID,
		DecidedAt:          e.DecidedAt,
	}
}

func (l *MongoLog) RecordDecision(ctx context.Context, e ports.DecisionEntry) error {
	if l == nil || l.MG == nil || l.MG.Database == nil {
		return mongo.ErrClientDisconnected
	}
	_, err := l.MG.Collection(DecisionsCollection).InsertOne(ctx, toDocument(e), options.InsertOne())
	return err
}

// EnsureIndexes indexes decisions by customer and time.
func (l *MongoLog) EnsureIndexes(ctx context.Context) error {
	if l == nil || l.MG == nil || l.MG.Database == nil {
		return mongo.ErrClientDisconnected
	}
	_, err := l.MG.Collection(DecisionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "decided_at", Value: -1}},
	})
	return err
}

var _ ports.DecisionLog = (*MongoLog)(nil)

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"creditdesk/internal/config/connections/mongo"
	"creditdesk/internal/config/connections/s3"
	importitems "creditdesk/internal/repository/imports"
	"creditdesk/internal/services/importer"
	"creditdesk/internal/services/loans"
)

// Importer runs one import to completion.
type Importer interface {
	Import(ctx context.Context, req importer.Request) (importer.Result, error)
}

// ImportRecords tracks the lifecycle of an uploaded sheet.
type ImportRecords interface {
	Find(ctx context.Context, id string) (importitems.Record, error)
	SetStatus(ctx context.Context, id, status string) error
	Finish(ctx context.Context, id string, rows, rejected int, cause error) error
}

// HealthCheck pings one backend.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handlers struct {
	Loans    *loans.Service
	Importer Importer
	Records  ImportRecords
	Mongo    *mongo.Mongo
	S3       *s3.S3
	Checks   []HealthCheck

	// ImportTimeout bounds a background import run.
	ImportTimeout time.Duration

	Logger *log.Logger
}

func New(svc *loans.Service, imp Importer, mg *mongo.Mongo, s3c *s3.S3, checks ...HealthCheck) *Handlers {
	h := &Handlers{
		Loans:         svc,
		Importer:      imp,
		Mongo:         mg,
		S3:            s3c,
		Checks:        checks,
		ImportTimeout: defaultImportTimeout,
		Logger:        log.Default(),
	}
	if mg != nil {
		h.Records = importitems.NewMongoRecords(mg)
	}
	return h
}

func (h *Handlers) JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) Error(w http.ResponseWriter, code int, msg string) {
	h.JSON(w, code, map[string]string{"error": msg})
}

const maxBodyBytes = 1 << 20

// decode reads a single JSON object and rejects unknown fields.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	importitems "creditdesk/internal/repository/imports"
	"creditdesk/internal/services/importer"
)

const (
	defaultImportTimeout = 15 * time.Minute
	recordWriteTimeout   = 10 * time.Second
)

type importRequest struct {
	Type           string `json:"type"`
	FilePath       string `json:"file_path"`
	BatchSize      int    `json:"batch_size"`
	TimeoutMin     int    `json:"timeout_minutes,omitempty"`
	ImportRecordID string `json:"import_record_id"`
}

// Import starts an import in the background and answers 202 right away.
// With only import_record_id set, type and file_path come from the stored
// upload record.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := h.decode(w, r, &req); err != nil {
		h.Logger.Printf("[IMPORT][REQ][ERR] bad JSON: %v", err)
		h.Error(w, http.StatusBadRequest, "bad JSON: "+err.Error())
		return
	}
	if req.ImportRecordID != "" && h.Records != nil && (req.FilePath == "" || req.Type == "") {
		rec, err := h.Records.Find(r.Context(), req.ImportRecordID)
		if errors.Is(err, importitems.ErrRecordNotFound) {
			h.Error(w, http.StatusNotFound, "import record not found")
			return
		}
		if err != nil {
			h.Logger.Printf("[IMPORT][REQ][ERR] import record %s: %v", req.ImportRecordID, err)
			h.Error(w, http.StatusInternalServerError, "import record lookup failed")
			return
		}
		if req.FilePath == "" {
			req.FilePath = rec.Path
		}
		if req.Type == "" {
			req.Type = rec.Type.String()
		}
	}
	if strings.TrimSpace(req.Type) == "" {
		h.Error(w, http.StatusBadRequest, "type is required")
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		h.Error(w, http.StatusBadRequest, "file_path is required")
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = importer.DefaultBatchSize
	}
	if h.Importer == nil {
		h.Error(w, http.StatusServiceUnavailable, "importer not configured")
		return
	}

	go h.runImport(req)

	h.JSON(w, http.StatusAccepted, map[string]any{
		"status":           "started",
		"type":             req.Type,
		"file_path":        req.FilePath,
		"batch_size":       req.BatchSize,
		"import_record_id": req.ImportRecordID,
	})
}

func (h *Handlers) runImport(req importRequest) {
	start := time.Now()

	timeout := h.ImportTimeout
	if timeout <= 0 {
		timeout = defaultImportTimeout
	}
	if req.TimeoutMin > 0 {
		timeout = time.Duration(req.TimeoutMin) * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	h.writeRecord(req.ImportRecordID, func(ctx context.Context) error {
		return h.Records.SetStatus(ctx, req.ImportRecordID, importitems.RecordStatusRunning)
	})

	res, err := h.Importer.Import(ctx, importer.Request{
		Type:           req.Type,
		FilePath:       req.FilePath,
		BatchSize:      req.BatchSize,
		ImportRecordID: req.ImportRecordID,
	})
	if err != nil {
		h.Logger.Printf("[IMPORT][ERR][BG] type=%q path=%q err=%v took=%s", req.Type, req.FilePath, err, time.Since(start))
	} else {
		h.Logger.Printf("[IMPORT][OK][BG] type=%q src=%s fmt=%s rows=%d rejected=%d size=%d took=%s",
			req.Type, res.Source, res.Format, res.RowsProcessed, res.RowsRejected, res.SizeBytes, time.Since(start))
	}

	h.writeRecord(req.ImportRecordID, func(ctx context.Context) error {
		return h.Records.Finish(ctx, req.ImportRecordID, res.RowsProcessed, res.RowsRejected, err)
	})
}

// writeRecord runs a record update on its own short deadline, so the outcome
// of an import that hit its timeout is still stored. It is a no-op without
// a record store or a record id.
func (h *Handlers) writeRecord(id string, write func(ctx context.Context) error) {
	if id == "" || h.Records == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordWriteTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		h.Logger.Printf("[IMPORT][WARN] import record %s: %v", id, err)
	}
}

package processors

import (
	"context"
	"errors"
	"log"

	"creditdesk/internal/metrics"
	"creditdesk/internal/ports"
)

// BaseProcessor carries the dependencies shared by every import type.
// Cache and Metrics are optional.
type BaseProcessor struct {
	Store   ports.ImportStore
	Items   ports.ItemLog
	Cache   ports.ScoreCache
	Metrics *metrics.Metrics
}

func NewBaseProcessor(store ports.ImportStore, items ports.ItemLog) *BaseProcessor {
	return &BaseProcessor{Store: store, Items: items}
}

func (b *BaseProcessor) checkDeps() error {
	if b == nil || b.Store == nil {
		return errors.New("import store not available")
	}
	if b.Items == nil {
		return errors.New("import item log not available")
	}
	return nil
}

// batchTally counts row outcomes of one batch.
type batchTally struct {
	done, failed int
}

func (b *BaseProcessor) fail(ctx context.Context, t *batchTally, recordID, modelType, modelID string, payload map[string]string, reason string) {
	t.failed++
	b.Items.LogItem(ctx, ports.ItemResult{
		ImportRecordID: recordID,
		ModelType:      modelType,
		ModelID:        modelID,
		Payload:        payload,
		Status:         ports.ItemStatusFailed,
		Errors:         reason,
	})
}

func (b *BaseProcessor) done(ctx context.Context, t *batchTally, recordID, modelType, modelID string, payload map[string]string, warnings string) {
	t.done++
	b.Items.LogItem(ctx, ports.ItemResult{
		ImportRecordID: recordID,
		ModelType:      modelType,
		ModelID:        modelID,
		Payload:        payload,
		Status:         ports.ItemStatusDone,
		Errors:         warnings,
	})
}

// finish drops cached scores of touched customers, records metrics and marks
// the import record done.
func (b *BaseProcessor) finish(ctx context.Context, t batchTally, recordID, modelType string, touched []int64) {
	if b.Cache != nil && len(touched) > 0 {
		if err := b.Cache.Invalidate(ctx, touched...); err != nil {
			log.Printf("[PROC][%s][WARN] invalidate scores: %v", modelType, err)
		}
	}

	b.Metrics.AddImportRows(modelType, ports.ItemStatusDone, t.done)
	b.Metrics.AddImportRows(modelType, ports.ItemStatusFailed, t.failed)

	if err := b.Items.MarkDone(ctx, recordID); err != nil {
		log.Printf("[PROC][%s][ERR] error change status: %v", modelType, err)
	}
}

package ports

import "context"

type ctxKey string

const CtxImportRecordID ctxKey = "import_record_id"

type Processor interface {
	Type() string
	ProcessBatch(ctx context.Context, batch []map[string]string) error
}

// ImportRecordID reads the import record id stored by the importer.
func ImportRecordID(ctx context.Context) string {
	s, _ := ctx.Value(CtxImportRecordID).(string)
	return s
}

// ItemLog records the outcome of a single imported row.
type ItemLog interface {
	LogItem(ctx context.Context, item ItemResult)
	MarkDone(ctx context.Context, importRecordID string) error
}

type ItemResult struct {
	ImportRecordID string
	ModelType      string
	ModelID        string
	Payload        map[string]string
	Status         string
	Errors         string
}

const (
	ItemStatusDone   = "done"
	ItemStatusFailed = "failed"
)

package processors

import (
	"context"
	"log"

	"creditdesk/internal/ports"
)

type NoopProcessor struct{}

func (NoopProcessor) Type() string { return "noop" }

func (NoopProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	log.Printf("[PROC][noop] rows=%d import_record_id=%s", len(batch), ports.ImportRecordID(ctx))
	return nil
}

// Registry returns every processor keyed by import type.
func Registry(base *BaseProcessor) map[string]ports.Processor {
	reg := make(map[string]ports.Processor, 3)
	for _, p := range []ports.Processor{
		NoopProcessor{},
		CustomersProcessor{BaseProcessor: base},
		LoansProcessor{BaseProcessor: base},
	} {
		reg[p.Type()] = p
	}
	return reg
}

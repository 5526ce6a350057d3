package importer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"creditdesk/internal/metrics"
	"creditdesk/internal/ports"

	"github.com/xuri/excelize/v2"
)

const DefaultBatchSize = 1000

const (
	FormatXLSX = ports.FormatXLSX
	FormatCSV  = ports.FormatCSV
)

type Request struct {
	Type           string
	FilePath       string
	BatchSize      int
	ImportRecordID string
}

type Result struct {
	Source        string
	FilePath      string
	Format        string
	RowsProcessed int
	RowsRejected  int
	SHA256        string
	ContentType   string
	Bucket        string
	Key           string
	SizeBytes     int64
}

// Items, when set, receives a failed item for every row the reader could not
// parse. Rows that parse are reported by their processor.
type Service struct {
	Opener     ports.FileOpener
	Processors map[string]ports.Processor
	DefaultBS  int
	Metrics    *metrics.Metrics
	Items      ports.ItemLog
}

func NewService(opener ports.FileOpener, registry map[string]ports.Processor, defaultBatch int) *Service {
	if defaultBatch <= 0 {
		defaultBatch = DefaultBatchSize
	}
	return &Service{Opener: opener, Processors: registry, DefaultBS: defaultBatch}
}

// rejectFunc reports a row that could not be read. line is 1-based and
// counts the header.
type rejectFunc func(ctx context.Context, line int, raw []string, cause error)

type streamFunc func(ctx context.Context, r io.Reader, proc ports.Processor, batchSize int, reject rejectFunc) (int, error)

// Import streams the file at req.FilePath into the processor registered for
// req.Type. When the first reader fails the file is opened again and read
// with the other format.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	t0 := time.Now()
	ctx = context.WithValue(ctx, ports.CtxImportRecordID, req.ImportRecordID)
	log.Printf("[IMP][START] type=%q path=%q batch_size=%d import_record_id=%q", req.Type, req.FilePath, req.BatchSize, req.ImportRecordID)

	proc, ok := s.Processors[req.Type]
	if !ok {
		log.Printf("[IMP][ERR] no processor for type=%q", req.Type)
		return Result{}, errors.New("no processor for type: " + req.Type)
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.DefaultBS
	}

	rc, meta, err := s.Opener.Open(ctx, req.FilePath)
	if err != nil {
		log.Printf("[IMP][ERR] open: %v", err)
		return Result{}, err
	}

	format := meta.Format
	if format == "" {
		format = ports.FormatOf(req.FilePath, meta.ContentType)
	}
	log.Printf("[IMP] source=%s name=%q content_type=%q size=%d detected_format=%s", meta.Source, meta.Name, meta.ContentType, meta.Size, format)

	order := []string{FormatXLSX, FormatCSV}
	if format == FormatCSV {
		order = []string{FormatCSV, FormatXLSX}
	}
	readers := map[string]streamFunc{
		FormatXLSX: s.streamXLSXFirstSheet,
		FormatCSV:  s.streamCSV,
	}

	var (
		total    int
		rejected int
		readErr  error
		hasher   hash.Hash
	)
	reject := func(ctx context.Context, line int, raw []string, cause error) {
		rejected++
		s.rejectRow(ctx, req, line, raw, cause)
	}
	for i, f := range order {
		if i > 0 {
			log.Printf("[IMP][%s][ERR] %v, fallback to %s", strings.ToUpper(order[i-1]), readErr, f)
			if rc, meta, err = s.Opener.Open(ctx, req.FilePath); err != nil {
				log.Printf("[IMP][ERR] reopen: %v", err)
				return Result{}, err
			}
		}

		hasher = sha256.New()
		log.Printf("[IMP] using %s reader", strings.ToUpper(f))
		total, readErr = readers[f](ctx, io.TeeReader(rc, hasher), proc, batchSize, reject)
		_ = rc.Close()

		// rows already handed on or reported must not be replayed
		if readErr == nil || total > 0 || rejected > 0 {
			format = f
			break
		}
	}

	if readErr != nil {
		log.Printf("[IMP][ERR] read pipeline: %v", readErr)
		return Result{}, readErr
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	dur := time.Since(t0)
	s.Metrics.ObserveImportDuration(req.Type, dur)
	log.Printf("[IMP][DONE] type=%q fmt=%s rows=%d unreadable=%d sha256=%s duration=%s", req.Type, format, total, rejected, sum, dur)

	return Result{
		Source:        meta.Source,
		FilePath:      req.FilePath,
		Format:        format,
		RowsProcessed: total,
		RowsRejected:  rejected,
		SHA256:        sum,
		ContentType:   meta.ContentType,
		Bucket:        meta.Bucket,
		Key:           meta.Key,
		SizeBytes:     meta.Size,
	}, nil
}

func (s *Service) rejectRow(ctx context.Context, req Request, line int, raw []string, cause error) {
	log.Printf("[IMP][WARN] type=%q line=%d unreadable: %v", req.Type, line, cause)
	s.Metrics.AddImportRows(req.Type, ports.ItemStatusFailed, 1)
	if s.Items == nil {
		return
	}
	s.Items.LogItem(ctx, ports.ItemResult{
		ImportRecordID: req.ImportRecordID,
		ModelType:      req.Type,
		ModelID:        fmt.Sprintf("line-%d", line),
		Payload:        map[string]string{"line": strconv.Itoa(line), "raw": strings.Join(raw, ",")},
		Status:         ports.ItemStatusFailed,
		Errors:         cause.Error(),
	})
}

// batcher hands rows to the processor in fixed-size batches.
type batcher struct {
	proc    ports.Processor
	size    int
	rows    []map[string]string
	total   int
	batches int
}

func newBatcher(proc ports.Processor, size int) *batcher {
	return &batcher{proc: proc, size: size, rows: make([]map[string]string, 0, size)}
}

func (b *batcher) add(ctx context.Context, row map[string]string) error {
	b.rows = append(b.rows, row)
	if len(b.rows) < b.size {
		return nil
	}
	return b.flush(ctx)
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.rows) == 0 {
		return nil
	}
	log.Printf("[IMP] send batch #%d size=%d total_so_far=%d", b.batches+1, len(b.rows), b.total)
	if err := b.proc.ProcessBatch(ctx, b.rows); err != nil {
		return err
	}
	b.total += len(b.rows)
	b.batches++
	b.rows = make([]map[string]string, 0, b.size)
	return nil
}

func (s *Service) streamCSV(ctx context.Context, r io.Reader, proc ports.Processor, batchSize int, reject rejectFunc) (int, error) {
	start := time.Now()
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, err
	}
	if !looksLikeCSVHeader(header) {
		return 0, errors.New("csv header is not readable text")
	}
	log.Printf("[IMP][CSV] header=%v", header)

	b := newBatcher(proc, batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return b.total, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			reject(ctx, line, record, err)
			continue
		}
		if isBlank(record) {
			continue
		}
		if err := b.add(ctx, toMap(header, record)); err != nil {
			return b.total, err
		}
	}
	if err := b.flush(ctx); err != nil {
		return b.total, err
	}
	log.Printf("[IMP][CSV][DONE] total_rows=%d batches=%d duration=%s", b.total, b.batches, time.Since(start))
	return b.total, nil
}

func (s *Service) streamXLSXFirstSheet(ctx context.Context, r io.Reader, proc ports.Processor, batchSize int, reject rejectFunc) (int, error) {
	start := time.Now()
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, errors.New("xlsx has no sheets")
	}
	sheet := sheets[0]
	log.Printf("[IMP][XLSX] first_sheet=%q", sheet)

	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Error()
	}
	header, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	log.Printf("[IMP][XLSX] header=%v", header)

	b := newBatcher(proc, batchSize)
	line := 1
	for rows.Next() {
		line++
		if err := ctx.Err(); err != nil {
			return b.total, err
		}
		cols, err := rows.Columns()
		if err != nil {
			reject(ctx, line, cols, err)
			continue
		}
		if isBlank(cols) {
			continue
		}
		if err := b.add(ctx, toMap(header, cols)); err != nil {
			return b.total, err
		}
	}
	if err := rows.Error(); err != nil {
		return b.total, err
	}
	if err := b.flush(ctx); err != nil {
		return b.total, err
	}
	log.Printf("[IMP][XLSX][DONE] total_rows=%d batches=%d duration=%s", b.total, b.batches, time.Since(start))
	return b.total, nil
}

func toMap(header []string, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, key := range header {
		val := ""
		if i < len(row) {
			val = row[i]
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return m
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// looksLikeCSVHeader rejects binary input such as a zip archive read as CSV.
func looksLikeCSVHeader(header []string) bool {
	for _, h := range header {
		for _, r := range h {
			if r == 0 || r == '\uFFFD' {
				return false
			}
		}
	}
	return len(header) > 0
}

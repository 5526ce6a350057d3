package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"creditdesk/internal/handlers"
	importitems "creditdesk/internal/repository/imports"
	"creditdesk/internal/repository/cache"
	"creditdesk/internal/repository/memory"
	"creditdesk/internal/services/importer"
	"creditdesk/internal/services/loans"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeImporter struct {
	got chan importer.Request
}

func (f *fakeImporter) Import(_ context.Context, req importer.Request) (importer.Result, error) {
	f.got <- req
	return importer.Result{RowsProcessed: 1}, nil
}

// stalledImporter holds the run until its deadline passes.
type stalledImporter struct{}

func (stalledImporter) Import(ctx context.Context, _ importer.Request) (importer.Result, error) {
	<-ctx.Done()
	return importer.Result{}, ctx.Err()
}

type recordWrite struct {
	status  string
	cause   error
	ctxLive bool
}

type fakeRecords struct {
	rec    importitems.Record
	writes chan recordWrite
}

func (f *fakeRecords) Find(_ context.Context, id string) (importitems.Record, error) {
	if id != "rec-1" {
		return importitems.Record{}, importitems.ErrRecordNotFound
	}
	return f.rec, nil
}

func (f *fakeRecords) SetStatus(ctx context.Context, _ string, status string) error {
	f.writes <- recordWrite{status: status, ctxLive: ctx.Err() == nil}
	return nil
}

func (f *fakeRecords) Finish(ctx context.Context, _ string, _, _ int, cause error) error {
	status := importitems.RecordStatusDone
	if cause != nil {
		status = importitems.RecordStatusFailed
	}
	f.writes <- recordWrite{status: status, cause: cause, ctxLive: ctx.Err() == nil}
	return nil
}

type RouterSuite struct {
	suite.Suite
	imp     *fakeImporter
	healthy bool
	router  http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	svc := loans.NewService(memory.NewStore(),
		loans.WithScoreCache(cache.NewMemoryScoreCache()),
		loans.WithClock(func() time.Time { return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC) }),
	)
	s.imp = &fakeImporter{got: make(chan importer.Request, 1)}
	s.healthy = true

	h := handlers.New(svc, s.imp, nil, nil, handlers.HealthCheck{
		Name: "redis",
		Check: func(context.Context) error {
			if s.healthy {
				return nil
			}
			return errors.New("down")
		},
	})

	reg := prometheus.NewRegistry()
	s.router = NewRouter(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func (s *RouterSuite) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (s *RouterSuite) registerAda() {
	rec, out := s.do(http.MethodPost, "/register",
		`{"first_name":"Ada","last_name":"Lovelace","age":36,"monthly_income":50000,"phone_number":9000000001}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Require().Equal(1.0, out["customer_id"])
}

func (s *RouterSuite) TestRegister() {
	rec, out := s.do(http.MethodPost, "/register",
		`{"first_name":"Ada","last_name":"Lovelace","age":36,"monthly_income":50000,"phone_number":"9000000001"}`)

	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("Ada Lovelace", out["name"])
	s.Equal(1800000.0, out["approved_limit"])
	s.Equal(50000.0, out["monthly_income"])
	s.Equal("9000000001", out["phone_number"])
	s.Equal(36.0, out["age"])
}

func (s *RouterSuite) TestRegisterValidation() {
	rec, _ := s.do(http.MethodPost, "/register", `{"first_name":"Ada","monthly_income":0}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/register", `{"first_name":"Ada","monthly_income":100,"nickname":"x"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestCheckEligibility() {
	s.registerAda()

	rec, out := s.do(http.MethodPost, "/check-eligibility",
		`{"customer_id":1,"loan_amount":100000,"interest_rate":10,"tenure":12}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, out["approval"])
	s.Equal(10.0, out["interest_rate"])
	s.Equal(12.01, out["corrected_interest_rate"])
	s.Equal(8885.35, out["monthly_installment"])
	s.Equal(12.0, out["tenure"])
}

func (s *RouterSuite) TestLoanRequestValidation() {
	for _, body := range []string{
		`{"customer_id":0,"loan_amount":1000,"interest_rate":10,"tenure":12}`,
		`{"customer_id":1,"loan_amount":0,"interest_rate":10,"tenure":12}`,
		`{"customer_id":1,"loan_amount":1000,"interest_rate":-1,"tenure":12}`,
		`{"customer_id":1,"loan_amount":1000,"interest_rate":10,"tenure":0}`,
		`{"customer_id":1,"loan_amount":1000,"interest_rate":10,"tenure":2000000000}`,
		`{"customer_id":1,"loan_amount":1000,"interest_rate":10000,"tenure":12}`,
		`{"customer_id":1,"loan_amount":1e15,"interest_rate":10,"tenure":12}`,
		`{"customer_id":1,"loan_amount":"abc","interest_rate":10,"tenure":12}`,
		`not json`,
	} {
		for _, path := range []string{"/check-eligibility", "/create-loan"} {
			rec, out := s.do(http.MethodPost, path, body)
			s.Equal(http.StatusBadRequest, rec.Code, "%s %s", path, body)
			s.NotEmpty(out["error"])
		}
	}
}

func (s *RouterSuite) TestCreateAndViewLoan() {
	s.registerAda()

	rec, out := s.do(http.MethodPost, "/create-loan",
		`{"customer_id":1,"loan_amount":100000,"interest_rate":10,"tenure":12}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(1.0, out["loan_id"])
	s.Equal(true, out["loan_approved"])
	s.Equal(loans.MsgLoanApproved, out["message"])
	s.Equal(8885.35, out["monthly_installment"])

	rec, out = s.do(http.MethodGet, "/view-loan/1", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(100000.0, out["loan_amount"])
	s.Equal(12.01, out["interest_rate"])
	customer, ok := out["customer"].(map[string]any)
	s.Require().True(ok)
	s.Equal("Ada", customer["first_name"])
	s.Equal(1.0, customer["id"])

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view-loans/1", nil))
	s.Require().Equal(http.StatusOK, rec.Code)
	var list []map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list, 1)
	s.Equal(12.0, list[0]["repayments_left"])
	s.Equal(8885.35, list[0]["monthly_installment"])
}

func (s *RouterSuite) TestCreateLoanMissingCustomer() {
	rec, out := s.do(http.MethodPost, "/create-loan",
		`{"customer_id":42,"loan_amount":1000,"interest_rate":10,"tenure":6}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Nil(out["loan_id"])
	s.Equal(false, out["loan_approved"])
	s.Equal(loans.MsgCustomerNotFound, out["message"])
	s.Equal(0.0, out["monthly_installment"])
}

func (s *RouterSuite) TestViewNotFound() {
	rec, out := s.do(http.MethodGet, "/view-loan/999", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Loan not found", out["error"])

	rec, out = s.do(http.MethodGet, "/view-loans/999", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Customer not found", out["error"])

	rec, _ = s.do(http.MethodGet, "/view-loan/abc", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestHealth() {
	rec, out := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, out["ok"])

	s.healthy = false
	rec, out = s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal([]any{"redis: down"}, out["errors"])
}

func (s *RouterSuite) TestImport() {
	rec, _ := s.do(http.MethodPost, "/import", `{"type":"loans"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, out := s.do(http.MethodPost, "/import", `{"type":"loans","file_path":"s3://bucket/loan_data.xlsx","import_record_id":"r1"}`)
	s.Equal(http.StatusAccepted, rec.Code)
	s.Equal("started", out["status"])
	s.Equal(float64(importer.DefaultBatchSize), out["batch_size"])

	select {
	case got := <-s.imp.got:
		s.Equal("loans", got.Type)
		s.Equal("s3://bucket/loan_data.xlsx", got.FilePath)
		s.Equal("r1", got.ImportRecordID)
	case <-time.After(2 * time.Second):
		s.Fail("import was not started")
	}
}

func (s *RouterSuite) TestImportFromRecord() {
	records := &fakeRecords{
		rec:    importitems.Record{Type: importitems.ModelTypeLoans, Path: "s3://uploads/loans/a.csv"},
		writes: make(chan recordWrite, 2),
	}
	h := handlers.New(nil, s.imp, nil, nil)
	h.Records = records
	router := NewRouter(h, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`{"import_record_id":"missing"}`)))
	s.Equal(http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`{"import_record_id":"rec-1"}`)))
	s.Require().Equal(http.StatusAccepted, rec.Code, rec.Body.String())

	select {
	case got := <-s.imp.got:
		s.Equal("loans", got.Type)
		s.Equal("s3://uploads/loans/a.csv", got.FilePath)
	case <-time.After(2 * time.Second):
		s.Fail("import was not started")
	}
	s.Equal(importitems.RecordStatusRunning, (<-records.writes).status)
	s.Equal(importitems.RecordStatusDone, (<-records.writes).status)
}

func TestImportTimeoutStillMarksRecordFailed(t *testing.T) {
	records := &fakeRecords{writes: make(chan recordWrite, 2)}
	h := handlers.New(nil, stalledImporter{}, nil, nil)
	h.Records = records
	h.ImportTimeout = 20 * time.Millisecond
	router := NewRouter(h, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import",
		strings.NewReader(`{"type":"loans","file_path":"s3://uploads/loans/a.csv","import_record_id":"rec-1"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var writes []recordWrite
	for len(writes) < 2 {
		select {
		case w := <-records.writes:
			writes = append(writes, w)
		case <-time.After(2 * time.Second):
			t.Fatalf("record writes: got %d, want 2", len(writes))
		}
	}

	assert.Equal(t, importitems.RecordStatusRunning, writes[0].status)
	assert.Equal(t, importitems.RecordStatusFailed, writes[1].status)
	assert.ErrorIs(t, writes[1].cause, context.DeadlineExceeded)
	assert.True(t, writes[1].ctxLive, "failed status must be written on a live context")
}

func (s *RouterSuite) TestUpload() {
	upload := func(typ string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if typ != "" {
			s.Require().NoError(mw.WriteField("type", typ))
		}
		fw, err := mw.CreateFormFile("file", "loan_data.csv")
		s.Require().NoError(err)
		_, _ = fw.Write([]byte("Loan ID\n1\n"))
		s.Require().NoError(mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	s.Equal(http.StatusBadRequest, upload("").Code)
	s.Equal(http.StatusBadRequest, upload("debts").Code)
	s.Equal(http.StatusServiceUnavailable, upload("loans").Code)
}

func (s *RouterSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "creditdesk_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	r := NewRouter(nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "creditdesk_test_total 1")
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"creditdesk/internal/config"
	"creditdesk/internal/services/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImporter struct {
	mu    sync.Mutex
	calls []importer.Request
	fail  map[string]error
}

func (f *fakeImporter) Import(_ context.Context, req importer.Request) (importer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.fail[req.Type]; err != nil {
		return importer.Result{}, err
	}
	return importer.Result{RowsProcessed: 1, Format: "xlsx"}, nil
}

func (f *fakeImporter) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Type
	}
	return out
}

func TestLoadSeedOrder(t *testing.T) {
	imp := &fakeImporter{}
	s := New(imp, config.ImportConfig{
		CustomersPath: "/data/customer_data.xlsx",
		LoansPath:     "/data/loan_data.xlsx",
		BatchSize:     500,
	})

	require.NoError(t, s.LoadSeed(context.Background()))
	assert.Equal(t, []string{"customers", "loans"}, imp.types())
	assert.Equal(t, 500, imp.calls[1].BatchSize)
	assert.Equal(t, "/data/loan_data.xlsx", imp.calls[1].FilePath)
}

func TestLoadSeedStopsWhenCustomersFail(t *testing.T) {
	boom := errors.New("bucket missing")
	imp := &fakeImporter{fail: map[string]error{"customers": boom}}
	s := New(imp, config.ImportConfig{CustomersPath: "c.xlsx", LoansPath: "l.xlsx"})

	err := s.LoadSeed(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"customers"}, imp.types())
}

func TestLoadSeedSkipsUnsetPaths(t *testing.T) {
	imp := &fakeImporter{}
	s := New(imp, config.ImportConfig{LoansPath: "l.csv"})

	require.NoError(t, s.LoadSeed(context.Background()))
	assert.Equal(t, []string{"loans"}, imp.types())
}

func TestStart(t *testing.T) {
	disabled := New(&fakeImporter{}, config.ImportConfig{Schedule: "@daily"})
	assert.False(t, disabled.Enabled())
	require.NoError(t, disabled.Start())
	<-disabled.Stop().Done()

	bad := New(&fakeImporter{}, config.ImportConfig{CustomersPath: "c.xlsx", Schedule: "every day"})
	assert.Error(t, bad.Start())
}

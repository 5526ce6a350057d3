package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"creditdesk/internal/config"
	"creditdesk/internal/services/importer"

	"github.com/robfig/cron/v3"
)

const runTimeout = 30 * time.Minute

type Importer interface {
	Import(ctx context.Context, req importer.Request) (importer.Result, error)
}

// Scheduler loads the configured customer and loan sheets on start and,
// when a cron expression is set, again on every tick.
type Scheduler struct {
	cron *cron.Cron
	imp  Importer
	cfg  config.ImportConfig
}

func New(imp Importer, cfg config.ImportConfig) *Scheduler {
	cronLogger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	return &Scheduler{cron: c, imp: imp, cfg: cfg}
}

// Enabled reports whether any seed file is configured.
func (s *Scheduler) Enabled() bool {
	return s.cfg.CustomersPath != "" || s.cfg.LoansPath != ""
}

// LoadSeed imports customers first; loans are skipped when that fails since
// every loan row needs its customer.
func (s *Scheduler) LoadSeed(ctx context.Context) error {
	steps := []struct {
		typ  string
		path string
	}{
		{"customers", s.cfg.CustomersPath},
		{"loans", s.cfg.LoansPath},
	}

	for _, st := range steps {
		if st.path == "" {
			continue
		}
		res, err := s.imp.Import(ctx, importer.Request{
			Type:      st.typ,
			FilePath:  st.path,
			BatchSize: s.cfg.BatchSize,
		})
		if err != nil {
			return fmt.Errorf("seed %s from %q: %w", st.typ, st.path, err)
		}
		log.Printf("[SCHED][SEED][OK] type=%s rows=%d fmt=%s", st.typ, res.RowsProcessed, res.Format)
	}
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.LoadSeed(ctx); err != nil {
		log.Printf("[SCHED][SEED][ERR] %v", err)
	}
}

// Start kicks off the initial load in the background and registers the
// cron job. Only an invalid schedule is an error.
func (s *Scheduler) Start() error {
	if !s.Enabled() {
		log.Printf("[SCHED] no seed files configured")
		return nil
	}

	if s.cfg.Schedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Schedule, s.run); err != nil {
			return fmt.Errorf("schedule %q: %w", s.cfg.Schedule, err)
		}
		log.Printf("[SCHED] scheduled seed import schedule=%q", s.cfg.Schedule)
	}

	go s.run()
	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish through the returned context.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

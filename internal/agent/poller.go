// Package agent implements the background prescription scanner: a single
// poll loop that discovers new feed records, drives them through the AI
// classifier and the severity gate, and tracks its scan position in a
// crash-consistent checkpoint.
package agent

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"patientcare-agent/internal/metrics"
	"patientcare-agent/pkg"
)

// Source lists feed records issued strictly after a timestamp, ordered
// ascending by (issued_on, id).
type Source interface {
	ListPrescriptionsSince(ctx context.Context, since time.Time) ([]pkg.Prescription, error)
}

// Classifier produces a classification result for one record, or a closed
// failure (timeout, service, malformed) with no partial result.
type Classifier interface {
	ClassifyPrescription(ctx context.Context, text string) (*pkg.ClassificationResult, error)
}

// Router applies the severity policy to one classified record.
type Router interface {
	Route(ctx context.Context, rec *pkg.Prescription, result *pkg.ClassificationResult) (pkg.RouteOutcome, error)
}

// Config tunes the poll loop.
type Config struct {
	// PollInterval is the idle time between scan cycles. Default: 30s.
	PollInterval time.Duration
}

func (c *Config) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
}

// Poller runs the scan → classify → route → checkpoint cycle on a fixed
// interval. It never runs concurrently with itself: one goroutine owns the
// loop, and a cycle that outlasts the interval simply absorbs the missed
// tick. All dependencies are injected; the poller holds no hidden state
// beyond the checkpoint.
type Poller struct {
	source     Source
	classifier Classifier
	router     Router
	checkpoint Checkpoint
	config     Config
	logger     *zap.Logger
}

// NewPoller constructs a Poller.
func NewPoller(source Source, classifier Classifier, router Router, checkpoint Checkpoint, cfg Config, logger *zap.Logger) *Poller {
	cfg.defaults()
	return &Poller{
		source:     source,
		classifier: classifier,
		router:     router,
		checkpoint: checkpoint,
		config:     cfg,
		logger:     logger,
	}
}

// Run executes scan cycles until ctx is cancelled. The first cycle starts
// immediately; cancellation is honored between cycles and between records,
// never mid-record.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("prescription scanner started",
		zap.Duration("poll_interval", p.config.PollInterval),
	)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("prescription scanner stopped")
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

// runCycle performs one full scan cycle. Per-record failures are isolated:
// they are logged, leave the record eligible for retry on the next cycle,
// and do not abort the remaining records. The checkpoint only ever advances
// over the contiguous prefix of successes in scan order, so a failed record
// is always revisited while earlier successes are not.
func (p *Poller) runCycle(ctx context.Context) {
	start := time.Now()

	last, hadCheckpoint, err := p.checkpoint.Read(ctx)
	if err != nil {
		p.logger.Error("checkpoint read failed, skipping cycle", zap.Error(err))
		return
	}

	records, err := p.source.ListPrescriptionsSince(ctx, last)
	if err != nil {
		p.logger.Error("prescription scan failed, skipping cycle", zap.Error(err))
		return
	}

	// The query already orders by (issued_on, id); re-sorting keeps the
	// contiguous-prefix arithmetic correct even against a source that
	// does not.
	sort.Slice(records, func(i, j int) bool {
		if !records[i].IssuedOn.Equal(records[j].IssuedOn) {
			return records[i].IssuedOn.Before(records[j].IssuedOn)
		}
		return records[i].ID < records[j].ID
	})

	mark := last
	prefixIntact := true
	var succeeded, failed int

	for i := range records {
		if ctx.Err() != nil {
			break
		}
		rec := &records[i]

		result, err := p.classifier.ClassifyPrescription(ctx, rec.Text)
		if err != nil {
			failed++
			prefixIntact = false
			p.logger.Error("record left for retry: classification failed",
				zap.Int64("prescription_id", rec.ID),
				zap.Time("issued_on", rec.IssuedOn),
				zap.Error(err),
			)
			continue
		}

		outcome, err := p.router.Route(ctx, rec, result)
		if err != nil {
			failed++
			prefixIntact = false
			p.logger.Error("record left for retry: routing failed",
				zap.Int64("prescription_id", rec.ID),
				zap.Time("issued_on", rec.IssuedOn),
				zap.Error(err),
			)
			continue
		}

		succeeded++
		if prefixIntact {
			mark = rec.IssuedOn
		}
		p.logger.Debug("record processed",
			zap.Int64("prescription_id", rec.ID),
			zap.String("outcome", string(outcome)),
		)
	}

	// Persist progress. The write also establishes a baseline on the very
	// first cycle even when nothing qualified; a failed write is fatal for
	// this cycle only, the next cycle re-derives the position from the
	// last committed value.
	if mark.After(last) || !hadCheckpoint {
		if err := p.checkpoint.Write(ctx, mark); err != nil {
			p.logger.Error("checkpoint write failed, progress discarded for this cycle",
				zap.Time("mark", mark),
				zap.Error(err),
			)
			return
		}
	}

	metrics.IncScanCycle()
	metrics.AddRecordsScanned(len(records))
	if len(records) > 0 || failed > 0 {
		p.logger.Info("scan cycle complete",
			zap.Int("scanned", len(records)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed),
			zap.Time("checkpoint", mark),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

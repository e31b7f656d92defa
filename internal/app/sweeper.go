package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/decept/internal/domain"
	"github.com/pscheid92/decept/internal/platform/correlation"
)

// Leader is a lease that lets only one instance run the periodic sweep.
type Leader interface {
	TryBecomeLeader(ctx context.Context) (bool, error)
	ReleaseLease(ctx context.Context) error
}

type SweepConfig struct {
	RevealAfter time.Duration
	BatchSize   int
	Timeout     time.Duration
	Interval    time.Duration
}

type SweepReport struct {
	Candidates int `json:"candidates"`
	Revealed   int `json:"revealed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Sweeper force-reveals posts that stayed open longer than RevealAfter.
// A post whose reveal fails stays in the unrevealed index and is retried by
// the next sweep.
type Sweeper struct {
	posts    domain.PostStore
	revealer *Revealer
	leader   Leader
	clock    clockwork.Clock
	cfg      SweepConfig
	metrics  Metrics
}

// NewSweeper creates a sweeper. leader and m may be nil; without a leader
// every instance running Run sweeps.
func NewSweeper(posts domain.PostStore, revealer *Revealer, leader Leader, clock clockwork.Clock, cfg SweepConfig, m Metrics) *Sweeper {
	return &Sweeper{
		posts:    posts,
		revealer: revealer,
		leader:   leader,
		clock:    clock,
		cfg:      cfg,
		metrics:  metricsOrNoop(m),
	}
}

// Candidates lists the posts the next sweep would reveal.
func (s *Sweeper) Candidates(ctx context.Context) ([]string, error) {
	cutoff := s.clock.Now().Add(-s.cfg.RevealAfter)
	ids, err := s.posts.ListExpired(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired posts: %w", err)
	}
	return ids, nil
}

// RunOnce reveals one batch of expired posts. Per-post failures are logged
// and counted; only a failure to list candidates is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	ctx = correlation.Ensure(ctx)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	ids, err := s.Candidates(ctx)
	if err != nil {
		s.metrics.SweepAborted()
		return SweepReport{}, err
	}

	report := SweepReport{Candidates: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			remaining := len(ids) - report.Revealed - report.Skipped - report.Failed
			report.Failed += remaining
			slog.WarnContext(ctx, "Sweep ran out of time", "remaining", remaining)
			break
		}

		res, err := s.revealer.Reveal(ctx, id, domain.TriggerExpiry)
		switch {
		case err != nil:
			report.Failed++
			slog.ErrorContext(ctx, "Expired post reveal failed", "post_id", id, "error", err)
		case res.Outcome == RevealNoop:
			report.Skipped++
		default:
			report.Revealed++
		}
	}

	s.metrics.SweepCompleted(report.Failed)
	if report.Candidates > 0 {
		slog.InfoContext(ctx, "Sweep finished",
			"candidates", report.Candidates,
			"revealed", report.Revealed,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
	return report, nil
}

// Run sweeps on every tick while this instance holds the lease. It blocks
// until ctx is cancelled and then gives the lease back.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	slog.Info("Reveal sweeper started", "interval", s.cfg.Interval, "reveal_after", s.cfg.RevealAfter)
	for {
		select {
		case <-ticker.Chan():
			s.tick(ctx)
		case <-ctx.Done():
			s.release()
			slog.Info("Reveal sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if s.leader != nil {
		leader, err := s.leader.TryBecomeLeader(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Sweep leader election failed", "error", err)
			return
		}
		if !leader {
			slog.DebugContext(ctx, "Not the sweep leader, skipping tick")
			return
		}
	}

	if _, err := s.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Sweep failed", "error", err)
	}
}

func (s *Sweeper) release() {
	if s.leader == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.leader.ReleaseLease(ctx); err != nil {
		slog.Warn("Failed to release sweep lease", "error", err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samims/hwbot/internal/clock"
)

var ErrNoCycleYet = errors.New("no poll cycle completed yet")

// CycleReporter exposes the progress of the poll loop.
type CycleReporter interface {
	LastCycle() time.Time
	Interval() time.Duration
}

type HealthService interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

type healthService struct {
	reporter CycleReporter
	clock    clock.Clock
	logger   *slog.Logger
}

func NewHealthService(reporter CycleReporter, clk clock.Clock, logger *slog.Logger) HealthService {
	l := logger.With("layer", "service", "component", "healthService")
	return &healthService{reporter: reporter, clock: clk, logger: l}
}

func (s *healthService) Liveness(ctx context.Context) error {
	s.logger.Debug("Liveness check passed")
	return nil
}

// Readiness passes once a cycle has finished and the loop has not stalled
// for more than two intervals.
func (s *healthService) Readiness(ctx context.Context) error {
	last := s.reporter.LastCycle()
	if last.IsZero() {
		return ErrNoCycleYet
	}

	age := s.clock.Now().Sub(last)
	if limit := 2 * s.reporter.Interval(); age > limit {
		s.logger.Error("Readiness check failed", slog.Duration("since_last_cycle", age))
		return fmt.Errorf("last poll cycle finished %s ago, limit %s", age.Round(time.Second), limit)
	}
	s.logger.Debug("Readiness check passed")
	return nil
}

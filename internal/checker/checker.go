package checker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samims/hwbot/internal/clock"
	appErr "github.com/samims/hwbot/internal/errors"
	"github.com/samims/hwbot/internal/metrics"
	"github.com/samims/hwbot/internal/service"
	"github.com/samims/hwbot/pkg/tracing"
)

const failureTemplate = "Неизвестный сбой в работе программы: %v"

// Fetcher returns the raw homework_statuses payload for a cursor.
type Fetcher interface {
	Fetch(ctx context.Context, fromDate int64) (interface{}, error)
}

// Notifier delivers a message to the chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// HomeworkChecker polls the review API and reports the latest status change.
// It is driven by a single goroutine; only lastCycle is read concurrently.
type HomeworkChecker struct {
	fetcher  Fetcher
	notifier Notifier
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
	tracer   *tracing.Tracer

	cursor    int64
	lastCycle atomic.Int64
}

// NewHomeworkChecker starts the cursor at the clock's current time.
func NewHomeworkChecker(
	fetcher Fetcher,
	notifier Notifier,
	clk clock.Clock,
	interval time.Duration,
	logger *slog.Logger,
	tracer *tracing.Tracer,
) *HomeworkChecker {
	return &HomeworkChecker{
		fetcher:  fetcher,
		notifier: notifier,
		clock:    clk,
		interval: interval,
		logger:   logger.With("component", "checker"),
		tracer:   tracer,
		cursor:   clk.Now().Unix(),
	}
}

// Cursor returns the from_date the next cycle will use.
func (hc *HomeworkChecker) Cursor() int64 {
	return hc.cursor
}

// LastCycle returns when the most recent cycle finished, zero if none has.
func (hc *HomeworkChecker) LastCycle() time.Time {
	ns := hc.lastCycle.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Interval is the fixed pause between cycles.
func (hc *HomeworkChecker) Interval() time.Duration {
	return hc.interval
}

// Start runs cycles until ctx is cancelled. Every cycle is followed by the
// same pause whatever its outcome.
func (hc *HomeworkChecker) Start(ctx context.Context) error {
	hc.logger.Info("HomeworkChecker started",
		slog.Int64("cursor", hc.cursor),
		slog.Duration("interval", hc.interval))

	for {
		hc.RunCycle(ctx)

		select {
		case <-ctx.Done():
		case <-hc.clock.After(hc.interval):
		}
		if err := ctx.Err(); err != nil {
			hc.logger.Info("HomeworkChecker stopped")
			return err
		}
	}
}

// RunCycle performs one fetch/validate/notify pass, handles its failure and
// returns the cycle error for inspection.
func (hc *HomeworkChecker) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	log := hc.logger.With(slog.String("cycle_id", cycleID))

	ctx, span := hc.tracer.StartInternalSpan(ctx, "checker.cycle",
		attribute.Int64(tracing.AttrPollCursor, hc.cursor))
	defer span.End()

	err := hc.cycle(ctx, log)
	kind := appErr.Classify(err)
	metrics.PollCycles.WithLabelValues(kind.String()).Inc()
	hc.lastCycle.Store(hc.clock.Now().UnixNano())

	if err != nil && ctx.Err() != nil {
		log.InfoContext(ctx, "Poll cycle interrupted by shutdown", slog.Any("error", err))
		return err
	}
	if err != nil {
		span.SetAttributes(attribute.String(tracing.AttrErrorKind, kind.String()))
		hc.tracer.RecordError(span, err)
		hc.handleError(ctx, log, err)
	}
	return err
}

func (hc *HomeworkChecker) cycle(ctx context.Context, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in poll cycle: %v", r)
		}
	}()

	payload, err := hc.fetcher.Fetch(ctx, hc.cursor)
	if err != nil {
		return err
	}

	log.DebugContext(ctx, "Validating response")
	homeworks, err := service.CheckResponse(payload)
	if err != nil {
		return err
	}
	currentDate, err := service.CurrentDate(payload)
	if err != nil {
		return err
	}
	hc.cursor = currentDate
	metrics.Cursor.Set(float64(currentDate))
	log.DebugContext(ctx, "Cursor advanced", slog.Int64("cursor", currentDate))

	if len(homeworks) == 0 {
		log.InfoContext(ctx, "No new homework statuses")
		return nil
	}

	message, err := service.StatusMessage(homeworks[0])
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "Homework status changed", slog.String("message", message))

	if err := hc.notifier.Notify(ctx, message); err != nil {
		metrics.Notifications.WithLabelValues("verdict", "failed").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues("verdict", "sent").Inc()
	return nil
}

// handleError logs domain failures. Anything else is also reported to the
// chat once; if that report fails or panics it is only logged.
func (hc *HomeworkChecker) handleError(ctx context.Context, log *slog.Logger, err error) {
	if appErr.IsDomain(err) {
		log.ErrorContext(ctx, "Bot operation failed", slog.Any("error", err))
		return
	}

	log.ErrorContext(ctx, "Unknown failure in poll cycle",
		slog.String("kind", appErr.Classify(err).String()),
		slog.Any("error", err))

	if notifyErr := hc.reportFailure(ctx, err); notifyErr != nil {
		metrics.Notifications.WithLabelValues("error", "failed").Inc()
		log.ErrorContext(ctx, "Failure report not delivered", slog.Any("error", notifyErr))
		return
	}
	metrics.Notifications.WithLabelValues("error", "sent").Inc()
}

func (hc *HomeworkChecker) reportFailure(ctx context.Context, cause error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while reporting failure: %v", r)
		}
	}()
	return hc.notifier.Notify(ctx, fmt.Sprintf(failureTemplate, cause))
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mebel-erp/mebel-erp/internal/ledger"
)

// LedgerSummaryRefreshJob recomputes the cash-flow summary so that the first
// dashboard read after a quiet period hits a warm cache.
type LedgerSummaryRefreshJob struct {
	Ledger *ledger.Service
	Logger *slog.Logger
	clock  func() time.Time
}

// NewLedgerSummaryRefreshJob wires dependencies for the refresh handler.
func NewLedgerSummaryRefreshJob(ledgerSvc *ledger.Service, logger *slog.Logger) *LedgerSummaryRefreshJob {
	return &LedgerSummaryRefreshJob{
		Ledger: ledgerSvc,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes ledger summary refresh tasks.
func (j *LedgerSummaryRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("summary refresh: handler not configured")
	}
	var payload LedgerSummaryRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := j.now()

	// Drop before summarizing so the read below repopulates from the
	// database instead of serving a stale cached value.
	j.Ledger.DropSummaryCache(ctx)
	summary, err := j.Ledger.Summarize(ctx)
	if err != nil {
		logger.Error("refresh ledger summary", slog.Any("error", err))
		return err
	}

	logger.Info("refreshed ledger summary",
		slog.Float64("balance", summary.Balance),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *LedgerSummaryRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerSummaryRefresh))
	}
	return slog.Default().With(slog.String("job", TaskLedgerSummaryRefresh))
}

func (j *LedgerSummaryRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerSummaryRefresh recomputes the cash-flow summary and warms
	// its cache.
	TaskLedgerSummaryRefresh = "ledger:summary_refresh"
)

// LedgerSummaryRefreshPayload carries the trigger reason for logging.
type LedgerSummaryRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewLedgerSummaryRefreshTask constructs an Asynq task.
func NewLedgerSummaryRefreshTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerSummaryRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerSummaryRefresh, data), nil
}

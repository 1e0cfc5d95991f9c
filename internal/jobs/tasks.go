// Package jobs runs ledger background work on asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerVerify recomputes the reports and checks they still balance.
	TaskLedgerVerify = "ledger:verify"
)

// VerifyPayload describes one integrity run.
type VerifyPayload struct {
	// AsOf is the balance-sheet date (YYYY-MM-DD). Empty means today in UTC.
	AsOf string `json:"as_of,omitempty"`
	// Trigger records who asked for the run, for the logs.
	Trigger string `json:"trigger,omitempty"`
}

// NewVerifyTask constructs a ledger:verify task.
func NewVerifyTask(payload VerifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerVerify, data), nil
}

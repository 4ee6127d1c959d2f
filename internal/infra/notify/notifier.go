// Package notify hands approved-revision events to the external watch /
// notification subsystem. Subscriber resolution, batching and delivery are
// entirely that subsystem's concern.
package notify

import (
	"context"
	"log/slog"

	"ourtextscores/internal/catalog"
)

// LogNotifier records events to the log only; stands in until the watch
// subsystem's queue endpoint is wired.
type LogNotifier struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) QueueNewRevision(_ context.Context, ev catalog.NewRevisionEvent) error {
	n.log.Info("new revision event",
		"work_id", ev.WorkID,
		"source_id", ev.SourceID,
		"revision_id", ev.RevisionID,
		"seq", ev.SequenceNumber,
		"branch", ev.BranchName)
	return nil
}

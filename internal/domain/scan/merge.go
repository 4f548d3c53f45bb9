package scan

import "github.com/hintsweep/scanpipe/internal/domain/model"

// Merge applies a single ResultMessage's effects onto a durable Job record in
// place. It implements the sync merge algorithm: a terminal error is
// absorbing, a started observation only ever advances a job once, and a
// hint's status and messages are fixed by whichever non-pending observation
// reaches it first — later observations for the same hint are no-ops, which
// is what makes Merge safe to apply twice for the same message or
// independently for oversize partitions of the same terminal.
func Merge(dbJob *model.Job, msg model.ResultMessage) {
	if dbJob.Status == model.JobStatusError {
		return
	}

	if msg.Status == model.JobStatusStarted {
		if dbJob.Status == model.JobStatusPending {
			dbJob.Started = msg.Started
			dbJob.EngineVersion = msg.EngineVersion
			dbJob.Status = model.JobStatusStarted
		}
		return
	}

	for _, h := range msg.Hints {
		target := dbJob.HintByName(h.Name)
		if target == nil || target.Status != model.HintStatusPending {
			continue
		}
		target.Status = h.Status
		target.Messages = h.Messages
	}

	if msg.Status == model.JobStatusError {
		dbJob.Status = model.JobStatusError
		dbJob.Finished = msg.Finished
		dbJob.Error = msg.Error
		return
	}

	if allNonPending(dbJob.Hints) {
		dbJob.Status = msg.Status
		dbJob.Finished = msg.Finished
	}
}

func allNonPending(hints []model.HintResult) bool {
	for _, h := range hints {
		if h.Status == model.HintStatusPending {
			return false
		}
	}
	return true
}

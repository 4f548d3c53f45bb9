// Package scan holds the pure, side-effect-free logic for turning an engine's
// raw findings into HintResult entries, independent of queues, processes, or
// persistence.
package scan

import "github.com/hintsweep/scanpipe/internal/domain/model"

// ResolveOK implements the §4.1.1 hint status resolution for a successful
// engine run: for each hint the sub-job declares, it is turned off, bucketed
// by severity from the engine's messages, marked pass if merely mentioned, or
// left pending for a later sub-job to decide.
func ResolveOK(hintNames []string, bundle model.ConfigBundle, messages []model.EngineMessage) []model.HintResult {
	buckets := bucketByHint(messages)

	results := make([]model.HintResult, 0, len(hintNames))
	for _, name := range hintNames {
		directive, mentioned := bundle.Hints[name]

		switch {
		case mentioned && directive.IsOff():
			results = append(results, model.HintResult{Name: name, Status: model.HintStatusOff})
		case len(buckets[name]) > 0:
			results = append(results, model.HintResult{
				Name:     name,
				Status:   severityOf(buckets[name]),
				Messages: buckets[name],
			})
		case mentioned:
			results = append(results, model.HintResult{Name: name, Status: model.HintStatusPass})
		default:
			results = append(results, model.HintResult{Name: name, Status: model.HintStatusPending})
		}
	}
	return results
}

// ResolveError implements §4.1.2: every hint the bundle mentions and does not
// turn off is marked error with a single synthetic message; off hints stay
// off; hints the bundle never mentions remain pending.
func ResolveError(hintNames []string, bundle model.ConfigBundle, engineErr *model.JobError) []model.HintResult {
	message := ""
	if engineErr != nil {
		message = engineErr.Message
	}

	results := make([]model.HintResult, 0, len(hintNames))
	for _, name := range hintNames {
		directive, mentioned := bundle.Hints[name]
		switch {
		case mentioned && directive.IsOff():
			results = append(results, model.HintResult{Name: name, Status: model.HintStatusOff})
		case mentioned:
			results = append(results, model.HintResult{
				Name:   name,
				Status: model.HintStatusError,
				Messages: []model.HintMessage{
					{HintID: name, Message: message},
				},
			})
		default:
			results = append(results, model.HintResult{Name: name, Status: model.HintStatusPending})
		}
	}
	return results
}

// bucketByHint groups engine messages by the hint they were reported against,
// converting EngineMessage (the wire shape) into HintMessage (the stored shape).
func bucketByHint(messages []model.EngineMessage) map[string][]model.HintMessage {
	buckets := make(map[string][]model.HintMessage)
	for _, m := range messages {
		buckets[m.HintID] = append(buckets[m.HintID], model.HintMessage{
			HintID:   m.HintID,
			Message:  m.Message,
			Location: m.Location,
			Severity: m.Severity,
		})
	}
	return buckets
}

// severityOf returns the highest-ranked status implied by a bucket of messages
// under error > warning > pass. A bucket with messages but no recognised
// severity tag defaults to error, since the engine reported something.
func severityOf(bucket []model.HintMessage) model.HintStatus {
	highest := model.HintStatusPass
	sawAny := false
	for _, m := range bucket {
		sawAny = true
		switch model.HintStatus(m.Severity) {
		case model.HintStatusError, model.HintStatusWarning, model.HintStatusPass:
			highest = model.HigherSeverity(highest, model.HintStatus(m.Severity))
		default:
			highest = model.HigherSeverity(highest, model.HintStatusError)
		}
	}
	if !sawAny {
		return model.HintStatusPass
	}
	return highest
}

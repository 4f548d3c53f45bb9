package scan

import (
	"encoding/json"

	"github.com/hintsweep/scanpipe/internal/domain/model"
)

// CollapsedMessage is substituted for a hint's messages when that hint alone
// would exceed the bus's size limit, per §4.1.3 step 3.
const CollapsedMessage = "This hint has too many errors, please use webhint locally for more details"

// CollapseOversizedHint replaces a hint's messages with a single diagnostic
// entry if its messages alone, serialized, exceed maxSize. The hint's status
// is preserved.
func CollapseOversizedHint(h model.HintResult, maxSize int) model.HintResult {
	if size(h.Messages) <= maxSize {
		return h
	}
	h.Messages = []model.HintMessage{{Message: CollapsedMessage}}
	return h
}

// Partition splits a ResultMessage's hints into one or more ResultMessages
// using a greedy first-fit packing against maxSize. Hints whose own messages
// alone exceed maxSize are collapsed in place first. A hint that fits in no
// existing partition starts a new one, which can exceed maxSize when that
// hint plus the message's other fields is larger than maxSize. Each returned partition shares id, partInfo, and
// status with the original.
func Partition(msg model.ResultMessage, maxSize int) []model.ResultMessage {
	if size(msg) <= maxSize {
		return []model.ResultMessage{msg}
	}

	hints := make([]model.HintResult, len(msg.Hints))
	for i, h := range msg.Hints {
		hints[i] = CollapseOversizedHint(h, maxSize)
	}

	template := msg
	template.Hints = nil
	baseSize := size(template)

	var partitions [][]model.HintResult
	for _, h := range hints {
		hintSize := size(h)
		placed := false
		for i := range partitions {
			if baseSize+size(partitions[i])+hintSize <= maxSize {
				partitions[i] = append(partitions[i], h)
				placed = true
				break
			}
		}
		if !placed {
			partitions = append(partitions, []model.HintResult{h})
		}
	}

	out := make([]model.ResultMessage, len(partitions))
	for i, hints := range partitions {
		part := msg
		part.Hints = hints
		out[i] = part
	}
	return out
}

// size returns the serialized byte length of v, or a large sentinel if it
// cannot be marshaled (which should not happen for these wire types).
func size(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 1 << 30
	}
	return len(b)
}

package sync_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hintsweep/scanpipe/internal/adapters/sync"
	"github.com/hintsweep/scanpipe/internal/core"
	"github.com/hintsweep/scanpipe/internal/domain/model"
	"github.com/hintsweep/scanpipe/internal/testutil"
)

// TestSync_LocksThenUnlocksSameJobRecord pins down the §4.3 locking contract
// precisely: Lock is acquired for "job-lock:<id>" before the record is read,
// and Unlock is released for that same name and owner once the merge is
// done, regardless of outcome.
func TestSync_LocksThenUnlocksSameJobRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	locker := core.NewMockLocker(ctrl)

	gomock.InOrder(
		locker.EXPECT().
			Lock(gomock.Any(), "job-lock:job-9", gomock.Any(), time.Minute).
			Return(true, nil),
		locker.EXPECT().
			Unlock(gomock.Any(), "job-lock:job-9", gomock.Any()).
			Return(nil),
	)

	jobs := testutil.NewFakeJobRepository()
	require.NoError(t, jobs.Upsert(context.Background(), &model.Job{
		ID: "job-9", Status: model.JobStatusPending, Queued: time.Unix(0, 0),
		Hints: []model.HintResult{{Name: "axe", Status: model.HintStatusPending}},
	}))

	results := testutil.NewFakeQueue(0)
	started := time.Unix(100, 0)
	payload, err := json.Marshal(model.ResultMessage{ID: "job-9", Status: model.JobStatusStarted, Started: &started})
	require.NoError(t, err)
	_, err = results.Send(context.Background(), payload)
	require.NoError(t, err)

	s := sync.New(sync.Config{ResultsQueue: results, Jobs: jobs, Lock: locker, LockTTL: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
}

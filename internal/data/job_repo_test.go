package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hintsweep/scanpipe/internal/data"
	"github.com/hintsweep/scanpipe/internal/domain/model"
	"github.com/hintsweep/scanpipe/internal/testutil"
)

func TestJobRepo_UpsertAndGetByID(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	repo := data.NewJobRepo(db, data.RepoConfig{})
	ctx := context.Background()

	job := &model.Job{
		ID:     "job-1",
		URL:    "https://example.com",
		Status: model.JobStatusPending,
		Config: []model.ConfigBundle{{Hints: map[string]model.HintDirective{"cookies": {Mode: "warning"}}}},
		Hints:  []model.HintResult{{Name: "cookies", Status: model.HintStatusPending}},
		Queued: testutil.TestTime(),
	}
	require.NoError(t, repo.Upsert(ctx, job))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, job.URL, got.URL)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, []string{"cookies"}, got.ExpectedHintNames())
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	repo := data.NewJobRepo(db, data.RepoConfig{})

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, data.ErrJobNotFound)
}

func TestJobRepo_UpsertOverwritesExistingRow(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	repo := data.NewJobRepo(db, data.RepoConfig{})
	ctx := context.Background()

	job := &model.Job{ID: "job-2", URL: "https://example.com", Status: model.JobStatusPending, Queued: testutil.TestTime()}
	require.NoError(t, repo.Upsert(ctx, job))

	started := testutil.TestTime().Add(time.Minute)
	job.Status = model.JobStatusStarted
	job.Started = &started
	require.NoError(t, repo.Upsert(ctx, job))

	got, err := repo.GetByID(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusStarted, got.Status)
	require.NotNil(t, got.Started)
	assert.WithinDuration(t, started, *got.Started, time.Second)
}

func TestJobRepo_ListBetweenWindows(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	repo := data.NewJobRepo(db, data.RepoConfig{})
	ctx := context.Background()

	base := testutil.TestTime()
	inWindow := base.Add(5 * time.Minute)
	outOfWindow := base.Add(time.Hour)

	require.NoError(t, repo.Upsert(ctx, &model.Job{ID: "in", URL: "https://a.example", Status: model.JobStatusPending, Queued: inWindow}))
	require.NoError(t, repo.Upsert(ctx, &model.Job{ID: "out", URL: "https://b.example", Status: model.JobStatusPending, Queued: outOfWindow}))

	jobs, err := repo.ListQueuedBetween(ctx, base, base.Add(15*time.Minute))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "in", jobs[0].ID)
}

func TestJobRepo_Upsert_RequiresID(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	repo := data.NewJobRepo(db, data.RepoConfig{})

	err := repo.Upsert(context.Background(), &model.Job{Queued: testutil.TestTime()})
	require.ErrorIs(t, err, data.ErrJobIDRequired)
}

func TestJobRepo_Upsert_StampsCreatedAtFromTimeProvider(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	fixed := data.NewFixedTimeProvider(testutil.TestTime())
	repo := data.NewJobRepo(db, data.RepoConfig{TimeProvider: fixed})
	ctx := context.Background()

	job := &model.Job{ID: "job-3", URL: "https://example.com", Status: model.JobStatusPending, Queued: testutil.TestTime()}
	require.NoError(t, repo.Upsert(ctx, job))
	assert.WithinDuration(t, fixed.Now(), job.CreatedAt, time.Second)

	fixed.AddTime(time.Hour)
	job.Status = model.JobStatusStarted
	require.NoError(t, repo.Upsert(ctx, job))

	got, err := repo.GetByID(ctx, "job-3")
	require.NoError(t, err)
	assert.WithinDuration(t, testutil.TestTime(), got.CreatedAt, time.Second)
	assert.WithinDuration(t, fixed.Now(), got.UpdatedAt, time.Second)
}

package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/store"
)

func newTestService(t *testing.T) (*store.DB, *Service) {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, NewService(db, zap.NewNop().Sugar())
}

func seedJob(t *testing.T, db *store.DB, owner, url string) *domain.Job {
	t.Helper()
	ctx := context.Background()
	company, _, err := db.GetOrCreateCompany(ctx, owner, "Acme", "https://acme.example")
	require.NoError(t, err)

	j := &domain.Job{Owner: owner, Title: "Backend Engineer", URL: url, Company: company}
	created, err := db.CreateJobIfNew(ctx, j)
	require.NoError(t, err)
	require.True(t, created)
	return j
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	db, svc := newTestService(t)
	job := seedJob(t, db, "me", "https://acme.example/jobs/1")

	require.NoError(t, svc.UpdateStatus(context.Background(), job, domain.StatusNew))

	evs, err := db.ListJobEvents(context.Background(), job.ID)
	require.NoError(t, err)
	require.Empty(t, evs)
}

func TestUpdateStatusRecordsExactlyOneEvent(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()
	job := seedJob(t, db, "me", "https://acme.example/jobs/1")

	require.NoError(t, svc.UpdateStatus(ctx, job, domain.StatusSaved))
	require.Equal(t, domain.StatusSaved, job.Status)
	require.NotNil(t, job.DateStatusChanged)

	// Repeating the same target after the cache refresh is a no-op.
	require.NoError(t, svc.UpdateStatus(ctx, job, domain.StatusSaved))

	evs, err := db.ListJobEvents(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, domain.StatusNew, evs[0].OldStatus)
	require.Equal(t, domain.StatusSaved, evs[0].NewStatus)

	got, err := db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSaved, got.Status)
	require.NotNil(t, got.DateStatusChanged)
}

func TestBanUnbanRoundTrip(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	saved := seedJob(t, db, "me", "https://acme.example/jobs/1")
	require.NoError(t, svc.UpdateStatus(ctx, saved, domain.StatusSaved))

	applied := seedJob(t, db, "me", "https://acme.example/jobs/2")
	require.NoError(t, svc.UpdateStatus(ctx, applied, domain.StatusApplied))

	company, err := db.GetCompany(ctx, saved.Company.ID)
	require.NoError(t, err)
	require.NoError(t, svc.BanCompany(ctx, &company, "ghosted me twice"))
	require.True(t, company.IsBanned)

	got, err := db.GetJob(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusBanned, got.Status)
	require.Equal(t, domain.StatusSaved, got.PreBanStatus)

	// Applied jobs are not part of the cascade.
	gotApplied, err := db.GetJob(ctx, applied.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApplied, gotApplied.Status)

	require.NoError(t, svc.UnbanCompany(ctx, &company))
	got, err = db.GetJob(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSaved, got.Status)
	require.Equal(t, domain.JobStatus(""), got.PreBanStatus)
}

func TestBanSweepOnlyTouchesEligibleJobs(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	job := seedJob(t, db, "me", "https://acme.example/jobs/1")
	applied := seedJob(t, db, "me", "https://acme.example/jobs/2")
	require.NoError(t, svc.UpdateStatus(ctx, applied, domain.StatusApplied))

	// Ban the company directly, simulating a job ingested after the ban.
	company, err := db.GetCompany(ctx, job.Company.ID)
	require.NoError(t, err)
	company.IsBanned = true
	require.NoError(t, db.SaveCompanyBan(ctx, company))

	banned, err := svc.BanSweep(ctx, "me")
	require.NoError(t, err)
	require.Equal(t, 1, banned)

	got, err := db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusBanned, got.Status)

	gotApplied, err := db.GetJob(ctx, applied.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApplied, gotApplied.Status)
}

func TestAppliedHookFiresOnTransitionIn(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()
	job := seedJob(t, db, "me", "https://acme.example/jobs/1")

	fired := 0
	svc.OnApplied(func(ctx context.Context, j *domain.Job) { fired++ })

	require.NoError(t, svc.UpdateStatus(ctx, job, domain.StatusApplied))
	require.Equal(t, 1, fired)

	// Same-status no-op must not re-fire.
	require.NoError(t, svc.UpdateStatus(ctx, job, domain.StatusApplied))
	require.Equal(t, 1, fired)

	// Leaving and re-entering applied fires again.
	require.NoError(t, svc.UpdateStatus(ctx, job, domain.StatusWithdrawn))
	require.NoError(t, svc.UpdateStatus(ctx, job, domain.StatusApplied))
	require.Equal(t, 2, fired)
}

func TestDismissAttachesNote(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()
	job := seedJob(t, db, "me", "https://acme.example/jobs/1")

	require.NoError(t, svc.Dismiss(ctx, job, "posting no longer available at source"))
	require.Equal(t, domain.StatusDismissed, job.Status)

	notes, err := db.ListJobNotes(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "posting no longer available at source", notes[0].Text)
}

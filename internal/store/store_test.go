package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/task"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateJobIfNewDeduplicatesByOwnerAndURL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	company, _, err := db.GetOrCreateCompany(ctx, "me", "Acme", "https://acme.example")
	require.NoError(t, err)

	first := &domain.Job{Owner: "me", Title: "Engineer", URL: "https://acme.example/jobs/1", Company: company}
	created, err := db.CreateJobIfNew(ctx, first)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, domain.StatusNew, first.Status)
	require.Equal(t, domain.StatusNew, first.CachedStatus())

	dup := &domain.Job{Owner: "me", Title: "Engineer (repost)", URL: "https://acme.example/jobs/1", Company: company}
	created, err = db.CreateJobIfNew(ctx, dup)
	require.NoError(t, err)
	require.False(t, created)

	// Same URL under a different owner is a distinct job.
	other := &domain.Job{Owner: "you", Title: "Engineer", URL: "https://acme.example/jobs/1", Company: company}
	created, err = db.CreateJobIfNew(ctx, other)
	require.NoError(t, err)
	require.True(t, created)
}

func TestGetOrCreateCompanyIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a, created, err := db.GetOrCreateCompany(ctx, "me", "Acme", "https://acme.example")
	require.NoError(t, err)
	require.True(t, created)

	b, created, err := db.GetOrCreateCompany(ctx, "me", "Acme Inc", "https://acme.example")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, a.ID, b.ID)
	// The stored name wins over later variants.
	require.Equal(t, "Acme", b.Name)

	c, created, err := db.GetOrCreateCompany(ctx, "you", "Acme", "https://acme.example")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, a.ID, c.ID)
}

func TestGetOrCreateLocationIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a, err := db.GetOrCreateLocation(ctx, "Berlin")
	require.NoError(t, err)
	b, err := db.GetOrCreateLocation(ctx, "Berlin")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
}

func TestGetOrCreateApplicationCreatesOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	company, _, err := db.GetOrCreateCompany(ctx, "me", "Acme", "https://acme.example")
	require.NoError(t, err)
	job := &domain.Job{Owner: "me", Title: "Engineer", URL: "https://acme.example/jobs/1", Company: company}
	_, err = db.CreateJobIfNew(ctx, job)
	require.NoError(t, err)

	a, created, err := db.GetOrCreateApplication(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, domain.AppSubmitted, a.Status)

	b, created, err := db.GetOrCreateApplication(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, a.ID, b.ID)
}

func TestRuleRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	in := &domain.Rule{
		Owner:        "me",
		Name:         "no agencies",
		IsActive:     true,
		MatchMode:    domain.MatchAny,
		TargetStatus: domain.StatusFiltered,
		Priority:     7,
		Conditions: []domain.RuleCondition{
			{Field: domain.FieldCompany, MatchType: domain.MatchContains, Value: "recruiting"},
			{Field: domain.FieldDescription, MatchType: domain.MatchRegex, Value: `staffing|agency`},
		},
	}
	require.NoError(t, db.CreateRule(ctx, in))

	out, err := db.GetRule(ctx, in.ID)
	require.NoError(t, err)

	sortConds := cmpopts.SortSlices(func(a, b domain.RuleCondition) bool { return a.Value < b.Value })
	if diff := cmp.Diff(in, out, sortConds); diff != "" {
		t.Errorf("rule round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestListRulesEvaluationOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, spec := range []struct {
		name     string
		priority int
	}{
		{"beta", 5},
		{"alpha", 5},
		{"urgent", 10},
	} {
		r := &domain.Rule{
			Owner: "me", Name: spec.name, IsActive: true,
			MatchMode: domain.MatchAll, TargetStatus: domain.StatusFiltered,
			Priority: spec.priority,
		}
		require.NoError(t, db.CreateRule(ctx, r))
	}

	rls, err := db.ListRules(ctx, "me")
	require.NoError(t, err)
	require.Len(t, rls, 3)
	require.Equal(t, "urgent", rls[0].Name)
	require.Equal(t, "alpha", rls[1].Name)
	require.Equal(t, "beta", rls[2].Name)
}

func TestClaimScoreTask(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	company, _, err := db.GetOrCreateCompany(ctx, "me", "Acme", "https://acme.example")
	require.NoError(t, err)
	job := &domain.Job{Owner: "me", Title: "Engineer", URL: "https://acme.example/jobs/1", Company: company, Populated: true}
	_, err = db.CreateJobIfNew(ctx, job)
	require.NoError(t, err)

	neverPending := func(*sql.Tx, string) (bool, error) { return false, nil }
	alwaysPending := func(*sql.Tx, string) (bool, error) { return true, nil }

	claimed, err := db.ClaimScoreTask(ctx, job.ID, "tok-1", neverPending)
	require.NoError(t, err)
	require.True(t, claimed)

	// Stored token still pending: no new claim.
	claimed, err = db.ClaimScoreTask(ctx, job.ID, "tok-2", alwaysPending)
	require.NoError(t, err)
	require.False(t, claimed)

	// Stored token went stale: the claim goes through and replaces it.
	claimed, err = db.ClaimScoreTask(ctx, job.ID, "tok-3", neverPending)
	require.NoError(t, err)
	require.True(t, claimed)

	got, err := db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, "tok-3", got.ScoreTaskID)

	// A scored job never claims, whatever the callback says.
	require.NoError(t, db.SaveJobScore(ctx, job.ID, 70, "fine"))
	claimed, err = db.ClaimScoreTask(ctx, job.ID, "tok-4", neverPending)
	require.NoError(t, err)
	require.False(t, claimed)

	got, err = db.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Empty(t, got.ScoreTaskID)
}

// A stored token whose status lives in the tasks table must be resolvable
// while the claim transaction holds the pool's only connection.
func TestClaimScoreTaskResolvesTokenInClaimTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	company, _, err := db.GetOrCreateCompany(ctx, "me", "Acme", "https://acme.example")
	require.NoError(t, err)
	job := &domain.Job{Owner: "me", Title: "Engineer", URL: "https://acme.example/jobs/1", Company: company, Populated: true}
	_, err = db.CreateJobIfNew(ctx, job)
	require.NoError(t, err)

	tasks := task.NewStore(db.Pool)
	outstanding := &task.Task{Handler: "noop"}
	require.NoError(t, tasks.Create(ctx, outstanding))

	pendingInTx := func(tx *sql.Tx, stored string) (bool, error) {
		return task.IsPending(ctx, tx, stored)
	}

	claimed, err := db.ClaimScoreTask(ctx, job.ID, outstanding.ID, pendingInTx)
	require.NoError(t, err)
	require.True(t, claimed)

	// The stored task is still queued, so a second claim is refused.
	claimed, err = db.ClaimScoreTask(ctx, job.ID, "tok-next", pendingInTx)
	require.NoError(t, err)
	require.False(t, claimed)

	// Once the task settles, the token is stale and the claim goes through.
	require.NoError(t, tasks.MarkCompleted(ctx, outstanding.ID))
	claimed, err = db.ClaimScoreTask(ctx, job.ID, "tok-next", pendingInTx)
	require.NoError(t, err)
	require.True(t, claimed)
}

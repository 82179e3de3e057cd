package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/events"
	"jobtriage-engine/internal/lifecycle"
	"jobtriage-engine/internal/rules"
	"jobtriage-engine/internal/score"
	"jobtriage-engine/internal/scrape"
	"jobtriage-engine/internal/store"
	"jobtriage-engine/internal/task"
)

// fakeBoard serves canned careerboard markup: listing pages by page number,
// detail pages by path.
type fakeBoard struct {
	listings map[int]string
	details  map[string]string
}

func (f *fakeBoard) Fetch(_ context.Context, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Path, "/jobs/search") {
		page := 1
		if n, err := strconv.Atoi(u.Query().Get("page")); err == nil {
			page = n
		}
		return f.listings[page]
	}
	return f.details[u.Path]
}

func listingPage(pages int, cards ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul class=\"pagination\">")
	for i := 1; i <= pages; i++ {
		fmt.Fprintf(&b, "<li><a>%d</a></li>", i)
	}
	b.WriteString("</ul>")
	for _, c := range cards {
		b.WriteString(c)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func jobCard(title, company, jobPath string) string {
	return fmt.Sprintf(`<div class="job-card">
<h3 class="job-card__title">%s</h3>
<span class="job-card__company">%s</span>
<span class="job-card__location">Berlin</span>
<a class="job-card__link" href="%s"></a>
<a class="job-card__company-link" href="/company/%s"></a>
<time datetime="2026-08-20"></time>
</div>`, title, company, jobPath, strings.ToLower(company))
}

func jobPage(desc, workplace string, easyApply bool) string {
	apply := ""
	if easyApply {
		apply = `<button class="easy-apply">Apply</button>`
	}
	return fmt.Sprintf(`<html><body>
<span class="job-meta__workplace">%s</span>
<div class="job-description">%s</div>
%s
</body></html>`, workplace, desc, apply)
}

type stubCompleter struct {
	reply string
	err   error
}

func (c stubCompleter) Complete(context.Context, string, string) (string, error) {
	return c.reply, c.err
}

type stack struct {
	db     *store.DB
	runner *Runner
	pool   *task.Pool
}

func newStack(t *testing.T, fetcher scrape.Fetcher, completer score.Completer) *stack {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop().Sugar()
	lc := lifecycle.NewService(db, log)
	rl := rules.NewService(db, lc, log)

	tasks := task.NewStore(db.Pool)
	queue := task.NewQueue(tasks)
	reg := task.NewRegistry()
	hub := events.NewHub()

	sc := score.NewService(db, tasks, completer, hub, log)
	sc.RegisterHandlers(reg)

	runner := NewRunner(db, queue, lc, rl, sc, fetcher, hub, log)
	runner.RegisterHandlers(reg)

	return &stack{db: db, runner: runner, pool: task.NewPool(tasks, reg, log, 1)}
}

func seedSearch(t *testing.T, db *store.DB, owner string) *domain.Search {
	t.Helper()
	s := &domain.Search{
		Owner:    owner,
		Keywords: "golang",
		Source:   scrape.SourceCareerBoard,
		IsActive: true,
	}
	require.NoError(t, db.CreateSearch(context.Background(), s))
	return s
}

func seedFilterRule(t *testing.T, db *store.DB, owner, value string) {
	t.Helper()
	r := &domain.Rule{
		Owner:        owner,
		Name:         "no " + value,
		IsActive:     true,
		MatchMode:    domain.MatchAll,
		TargetStatus: domain.StatusFiltered,
		Conditions: []domain.RuleCondition{
			{Field: domain.FieldTitle, MatchType: domain.MatchContains, Value: value},
		},
	}
	require.NoError(t, db.CreateRule(context.Background(), r))
}

func jobByURL(t *testing.T, jobs []*domain.Job, rawURL string) *domain.Job {
	t.Helper()
	for _, j := range jobs {
		if j.URL == rawURL {
			return j
		}
	}
	t.Fatalf("no job with url %s", rawURL)
	return nil
}

func TestExecuteRunsFullPipeline(t *testing.T) {
	board := &fakeBoard{
		listings: map[int]string{
			1: listingPage(1,
				jobCard("Go Engineer", "Acme", "/jobs/1"),
				jobCard("Python Intern", "Acme", "/jobs/2")),
		},
		details: map[string]string{
			"/jobs/1": jobPage("We build backend services in Go.", "Remote", true),
			"/jobs/2": jobPage("Internship for python students.", "On-site", false),
		},
	}
	st := newStack(t, board, stubCompleter{reply: `{"score": 85, "explanation": "strong overlap"}`})
	ctx := context.Background()

	s := seedSearch(t, st.db, "me")
	seedFilterRule(t, st.db, "me", "python")
	require.NoError(t, st.db.SaveResume(ctx, &domain.Resume{Owner: "me", Name: "cv", Text: "Go, SQL"}))

	started, err := st.runner.Execute(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, started)
	require.NoError(t, st.pool.Drain(ctx))

	got, err := st.db.GetSearch(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SearchSuccess, got.Status)
	require.NotNil(t, got.LastExecutedAt)

	runs, err := st.db.ListSearchRuns(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	require.Equal(t, domain.RunSuccess, run.Status)
	require.NotNil(t, run.CompletedAt)
	require.Equal(t, 2, run.JobsFound)
	require.Equal(t, 2, run.JobsCreated)

	jobs, err := st.db.ListRunJobs(ctx, run.ID, false)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	goJob := jobByURL(t, jobs, "https://www.careerboard.com/jobs/1")
	require.Equal(t, domain.StatusNew, goJob.Status)
	require.True(t, goJob.Populated)
	require.Equal(t, "We build backend services in Go.", goJob.Description)
	require.Equal(t, domain.FlexRemote, goJob.Flexibility)
	require.True(t, goJob.EasyApply)
	require.NotNil(t, goJob.Score)
	require.Equal(t, 85, *goJob.Score)
	require.Equal(t, "strong overlap", goJob.ScoreExplanation)
	require.Empty(t, goJob.ScoreTaskID)

	pyJob := jobByURL(t, jobs, "https://www.careerboard.com/jobs/2")
	require.Equal(t, domain.StatusFiltered, pyJob.Status)
	require.Nil(t, pyJob.Score)

	matches, err := st.db.ListRuleMatches(ctx, pyJob.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestExecuteSkipsSearchAlreadyInProgress(t *testing.T) {
	st := newStack(t, &fakeBoard{}, stubCompleter{})
	ctx := context.Background()
	s := seedSearch(t, st.db, "me")

	require.NoError(t, st.db.SetSearchStatus(ctx, s.ID, domain.SearchQueued))

	started, err := st.runner.Execute(ctx, s.ID)
	require.NoError(t, err)
	require.False(t, started)

	runs, err := st.db.ListSearchRuns(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestExecuteRerunDeduplicatesJobs(t *testing.T) {
	board := &fakeBoard{
		listings: map[int]string{
			1: listingPage(1, jobCard("Go Engineer", "Acme", "/jobs/1")),
		},
		details: map[string]string{
			"/jobs/1": jobPage("Go work.", "Remote", false),
		},
	}
	st := newStack(t, board, stubCompleter{err: fmt.Errorf("unused")})
	ctx := context.Background()
	s := seedSearch(t, st.db, "me")

	for i := 0; i < 2; i++ {
		started, err := st.runner.Execute(ctx, s.ID)
		require.NoError(t, err)
		require.True(t, started)
		require.NoError(t, st.pool.Drain(ctx))
	}

	runs, err := st.db.ListSearchRuns(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	totalCreated := 0
	for _, run := range runs {
		require.Equal(t, domain.RunSuccess, run.Status)
		require.Equal(t, 1, run.JobsFound)
		totalCreated += run.JobsCreated
	}
	require.Equal(t, 1, totalCreated)
}

func TestScrapePageFailureKeepsPartialResults(t *testing.T) {
	// Two pages advertised, second one fails to fetch.
	board := &fakeBoard{
		listings: map[int]string{
			1: listingPage(2, jobCard("Go Engineer", "Acme", "/jobs/1")),
		},
		details: map[string]string{
			"/jobs/1": jobPage("Go work.", "Remote", false),
		},
	}
	st := newStack(t, board, stubCompleter{})
	ctx := context.Background()
	s := seedSearch(t, st.db, "me")

	_, err := st.runner.Execute(ctx, s.ID)
	require.NoError(t, err)
	require.NoError(t, st.pool.Drain(ctx))

	runs, err := st.db.ListSearchRuns(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, domain.RunSuccess, runs[0].Status)
	require.Equal(t, 1, runs[0].JobsFound)
	require.Equal(t, 1, runs[0].JobsCreated)
}

func TestPopulateDismissesVanishedPosting(t *testing.T) {
	board := &fakeBoard{
		listings: map[int]string{
			1: listingPage(1, jobCard("Go Engineer", "Acme", "/jobs/1")),
		},
		details: map[string]string{
			"/jobs/1": `<html><body><div class="not-found">Gone</div></body></html>`,
		},
	}
	st := newStack(t, board, stubCompleter{})
	ctx := context.Background()
	s := seedSearch(t, st.db, "me")

	_, err := st.runner.Execute(ctx, s.ID)
	require.NoError(t, err)
	require.NoError(t, st.pool.Drain(ctx))

	runs, err := st.db.ListSearchRuns(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	jobs, err := st.db.ListRunJobs(ctx, runs[0].ID, false)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, domain.StatusDismissed, jobs[0].Status)
	require.False(t, jobs[0].Populated)

	notes, err := st.db.ListJobNotes(ctx, jobs[0].ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "posting no longer available at source", notes[0].Text)
}

func TestScrapeFailureSettlesRunAndSearch(t *testing.T) {
	st := newStack(t, &fakeBoard{}, stubCompleter{})
	ctx := context.Background()

	s := &domain.Search{Owner: "me", Keywords: "golang", Source: "ghostboard", IsActive: true}
	require.NoError(t, st.db.CreateSearch(ctx, s))

	started, err := st.runner.Execute(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, started)
	require.NoError(t, st.pool.Drain(ctx))

	got, err := st.db.GetSearch(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SearchError, got.Status)
	require.NotNil(t, got.LastExecutedAt)

	runs, err := st.db.ListSearchRuns(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, domain.RunError, runs[0].Status)
	require.NotEmpty(t, runs[0].ErrorMessage)
}

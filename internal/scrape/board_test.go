package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtriage-engine/internal/domain"
)

type staticFetcher struct {
	body string
}

func (f staticFetcher) Fetch(context.Context, string) string { return f.body }

const listingHTML = `<html><body>
<ul class="pagination"><li><a>1</a></li><li><a>2</a></li><li><a>3</a></li></ul>
<div class="job-card">
  <h3 class="job-card__title">Senior&nbsp;Go Engineer</h3>
  <span class="job-card__company">Acme Robotics</span>
  <span class="job-card__location">Berlin</span>
  <a class="job-card__link" href="/jobs/1001"></a>
  <a class="job-card__company-link" href="https://acme.example"></a>
  <time datetime="2026-08-20">Aug 20</time>
</div>
<div class="job-card">
  <h3 class="job-card__title">Data Analyst</h3>
  <span class="job-card__company">Beta Corp</span>
  <a class="job-card__link" href="/jobs/1002"></a>
</div>
</body></html>`

const detailHTML = `<html><body>
<span class="job-meta__workplace">Hybrid</span>
<div class="job-description">You will build data pipelines.</div>
<button class="easy-apply">Apply now</button>
</body></html>`

func TestCareerBoardPageCount(t *testing.T) {
	b := NewCareerBoard(staticFetcher{body: listingHTML})
	n, err := b.PageCount(context.Background(), &domain.Search{Keywords: "go"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A dead first page means nothing to scrape, not an error.
	b = NewCareerBoard(staticFetcher{})
	n, err = b.PageCount(context.Background(), &domain.Search{Keywords: "go"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCareerBoardParsePage(t *testing.T) {
	b := NewCareerBoard(staticFetcher{body: listingHTML})
	leads, err := b.ParsePage(context.Background(), &domain.Search{Keywords: "go"}, 1)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	first := leads[0]
	assert.Equal(t, "Senior Go Engineer", first.Title)
	assert.Equal(t, "Acme Robotics", first.CompanyName)
	assert.Equal(t, "Berlin", first.Location)
	assert.Equal(t, "https://www.careerboard.com/jobs/1001", first.URL)
	assert.Equal(t, "https://acme.example", first.CompanyURL)
	require.NotNil(t, first.DatePosted)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), *first.DatePosted)
	require.NotNil(t, first.DateFound)

	// Cards missing fields still come through; ingestion filters them.
	second := leads[1]
	assert.Equal(t, "Data Analyst", second.Title)
	assert.Nil(t, second.DatePosted)
}

func TestCareerBoardParsePageEmptyBodyErrors(t *testing.T) {
	b := NewCareerBoard(staticFetcher{})
	_, err := b.ParsePage(context.Background(), &domain.Search{Keywords: "go"}, 2)
	assert.Error(t, err)
}

func TestCareerBoardPopulateJob(t *testing.T) {
	b := NewCareerBoard(staticFetcher{body: detailHTML})
	j := &domain.Job{URL: "https://www.careerboard.com/jobs/1001"}
	require.NoError(t, b.PopulateJob(context.Background(), j))

	assert.Equal(t, "You will build data pipelines.", j.Description)
	assert.Equal(t, detailHTML, j.RawContent)
	assert.Equal(t, domain.FlexHybrid, j.Flexibility)
	assert.True(t, j.EasyApply)
}

func TestCareerBoardPopulateJobGone(t *testing.T) {
	b := NewCareerBoard(staticFetcher{body: `<html><body><div class="job-expired">Expired</div></body></html>`})
	j := &domain.Job{URL: "https://www.careerboard.com/jobs/1001"}
	err := b.PopulateJob(context.Background(), j)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, j.Populated)

	// A page without a description block is treated the same way.
	b = NewCareerBoard(staticFetcher{body: `<html><body><p>nothing here</p></body></html>`})
	err = b.PopulateJob(context.Background(), j)
	assert.ErrorIs(t, err, ErrNotFound)
}

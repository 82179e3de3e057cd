// Package scrape turns external job boards into leads. Each supported source
// is a Parser; fetching, rate limiting and retries live in the Fetcher so
// parsers stay pure HTML-to-lead translation.
package scrape

import (
	"context"

	"github.com/cockroachdb/errors"

	"jobtriage-engine/internal/domain"
)

// ErrNotFound means the posting no longer exists at the source. The populate
// stage dismisses the job instead of treating this as a failure.
var ErrNotFound = errors.New("posting not found")

// ErrUnknownSource means no parser is registered for the search's source.
var ErrUnknownSource = errors.New("unknown search source")

// Parser scrapes one job board.
type Parser interface {
	Name() string

	// PageCount returns how many result pages the search has right now.
	PageCount(ctx context.Context, s *domain.Search) (int, error)

	// ParsePage returns the leads on one result page, 1-based. Leads may be
	// incomplete; required-field checks happen at ingestion.
	ParsePage(ctx context.Context, s *domain.Search, page int) ([]domain.JobLead, error)

	// PopulateJob fetches the job's own page and fills Description,
	// RawContent, Flexibility and EasyApply. Returns ErrNotFound when the
	// posting has been taken down.
	PopulateJob(ctx context.Context, j *domain.Job) error
}

type factory func(f Fetcher) Parser

var parsers = map[string]factory{
	SourceCareerBoard: func(f Fetcher) Parser { return NewCareerBoard(f) },
}

// NewParser returns the parser for source, or ErrUnknownSource.
func NewParser(source string, f Fetcher) (Parser, error) {
	mk, ok := parsers[source]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSource, "source %q", source)
	}
	return mk(f), nil
}

// Sources lists the registered source names.
func Sources() []string {
	out := make([]string, 0, len(parsers))
	for name := range parsers {
		out = append(out, name)
	}
	return out
}

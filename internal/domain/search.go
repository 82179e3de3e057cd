package domain

import "time"

type SearchStatus string

const (
	SearchIdle    SearchStatus = "idle"
	SearchQueued  SearchStatus = "queued"
	SearchRunning SearchStatus = "running"
	SearchSuccess SearchStatus = "success"
	SearchError   SearchStatus = "error"
)

// Search describes a recurring scrape of one job board for one owner.
type Search struct {
	ID       string
	Owner    string
	Keywords string

	LocationID   string
	LocationName string
	GeoCode      *int64

	EasyApply bool
	IsOnsite  bool
	IsRemote  bool
	IsHybrid  bool

	Source   string // parser name, resolved through scrape.NewParser
	IsActive bool
	Schedule string // 5-field cron expression, empty = manual only

	Status         SearchStatus
	LastExecutedAt *time.Time
}

// Flexibility returns the derived work-mode value when exactly one of the
// onsite/remote/hybrid flags is set, and "" otherwise. Callers must treat ""
// as unspecified rather than assuming a default.
func (s Search) Flexibility() Flexibility {
	var out Flexibility
	set := 0
	if s.IsOnsite {
		out = FlexOnsite
		set++
	}
	if s.IsRemote {
		out = FlexRemote
		set++
	}
	if s.IsHybrid {
		out = FlexHybrid
		set++
	}
	if set != 1 {
		return ""
	}
	return out
}

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// SearchRun records one pipeline execution. Append-only.
type SearchRun struct {
	ID       string
	SearchID string
	Period   time.Duration // staleness window the scrape covered

	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time

	JobsFound   int
	JobsCreated int

	ErrorMessage string
}

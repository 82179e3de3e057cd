package domain

import "time"

// JobStatus covers the full lifecycle from discovery to application outcome.
// "new" is the only status a job can be created with; every later status is
// reached through lifecycle.UpdateStatus so the event log stays complete.
type JobStatus string

const (
	StatusNew          JobStatus = "new"
	StatusFiltered     JobStatus = "filtered"
	StatusBanned       JobStatus = "banned"
	StatusSaved        JobStatus = "saved"
	StatusExpired      JobStatus = "expired"
	StatusApplied      JobStatus = "applied"
	StatusDismissed    JobStatus = "dismissed"
	StatusInterviewing JobStatus = "interviewing"
	StatusOffer        JobStatus = "offer"
	StatusRejected     JobStatus = "rejected"
	StatusWithdrawn    JobStatus = "withdrawn"
	StatusGhosted      JobStatus = "ghosted"
	StatusAccepted     JobStatus = "accepted"
)

// JobStatuses lists every valid status value.
var JobStatuses = []JobStatus{
	StatusNew, StatusFiltered, StatusBanned, StatusSaved, StatusExpired,
	StatusApplied, StatusDismissed, StatusInterviewing, StatusOffer,
	StatusRejected, StatusWithdrawn, StatusGhosted, StatusAccepted,
}

// ValidJobStatus reports whether s is a known status value.
func ValidJobStatus(s string) bool {
	for _, st := range JobStatuses {
		if JobStatus(s) == st {
			return true
		}
	}
	return false
}

// EligibleStatuses is the candidate pool for rule application and ban sweeps.
var EligibleStatuses = []JobStatus{StatusNew, StatusSaved}

// Eligible reports whether automated triage may still move the job.
func (s JobStatus) Eligible() bool {
	return s == StatusNew || s == StatusSaved
}

type Flexibility string

const (
	FlexOnsite Flexibility = "onsite"
	FlexRemote Flexibility = "remote"
	FlexHybrid Flexibility = "hybrid"
)

type Job struct {
	ID      string
	Owner   string
	Title   string
	URL     string
	Company Company

	LocationID   string // empty when the posting had no usable location
	LocationName string

	DatePosted *time.Time
	DateFound  *time.Time

	Populated   bool
	Flexibility Flexibility
	RawContent  string
	Description string
	EasyApply   bool

	Status            JobStatus
	PreBanStatus      JobStatus // set only while Status == banned
	DateStatusChanged *time.Time

	Score            *int
	ScoreExplanation string
	ScoreTaskID      string // in-flight token; empty when no scoring task is outstanding

	SearchRunID string // run that discovered this job, empty for manual entries

	// cachedStatus is the status at materialization time. It is never
	// persisted; UpdateStatus compares against it to detect no-op
	// transitions and refreshes it after every effective change.
	cachedStatus JobStatus
}

// CacheStatus snapshots the current status as the load-time status. The store
// calls this after every scan and insert; it must not be re-derived lazily.
func (j *Job) CacheStatus() {
	j.cachedStatus = j.Status
}

// CachedStatus returns the status captured at materialization time.
func (j *Job) CachedStatus() JobStatus {
	return j.cachedStatus
}

type JobEvent struct {
	ID        string
	JobID     string
	OldStatus JobStatus
	NewStatus JobStatus
	CreatedAt time.Time
}

type JobNote struct {
	ID        string
	JobID     string
	Text      string
	CreatedAt time.Time
}

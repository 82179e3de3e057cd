package domain

import "time"

// Resume holds the owner's extracted resume text used for fit scoring.
// At most one per owner; scoring is skipped when none exists.
type Resume struct {
	ID    string
	Owner string
	Name  string
	Text  string
}

type ApplicationStatus string

const (
	AppSubmitted    ApplicationStatus = "submitted"
	AppScreening    ApplicationStatus = "screening"
	AppInterviewing ApplicationStatus = "interviewing"
	AppOffer        ApplicationStatus = "offer"
	AppRejected     ApplicationStatus = "rejected"
	AppWithdrawn    ApplicationStatus = "withdrawn"
	AppGhosted      ApplicationStatus = "ghosted"
	AppAccepted     ApplicationStatus = "accepted"
)

// Application is the one-to-one companion created the first time a job enters
// the applied status. Creation is get-or-create, hooked off the lifecycle
// observer rather than inlined in the state machine.
type Application struct {
	ID                string
	JobID             string
	Status            ApplicationStatus
	DateStatusChanged *time.Time
	CreatedAt         time.Time
}

package domain

import "time"

// JobLead is a raw job record as a source parser extracted it from a listing
// page. Company, Title, URL and DatePosted are required for ingestion; a lead
// missing any of them is silently discarded.
type JobLead struct {
	CompanyName string
	CompanyURL  string
	Title       string
	URL         string
	Location    string
	DatePosted  *time.Time
	DateFound   *time.Time
	Description string
}

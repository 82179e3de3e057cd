package domain

import "time"

type Company struct {
	ID           string
	Owner        string
	Name         string
	CanonicalURL string // unique per owner

	IsBanned  bool
	BannedAt  *time.Time
	BanReason string
}

// Location is immutable reference data, created on first sight of a new name.
type Location struct {
	ID      string
	Name    string
	GeoCode *int64
}

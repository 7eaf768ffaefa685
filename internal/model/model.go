// Package model defines the domain types used across the application.
package model

import "time"

// CandidateRecord is a feed item extracted from the source page that has not
// been classified or filtered yet.
type CandidateRecord struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
	ImageURL    string
}

// ResultRecord is a candidate that passed classification and the date window.
type ResultRecord struct {
	CandidateRecord
	DisplayCategory string
	MatchedCategory string
}

// Domain names a content source served by the bot.
type Domain string

// Supported content domains.
const (
	DomainNews   Domain = "news"
	DomainEvents Domain = "events"
)

// Source page formats.
const (
	FormatHTML = "html"
	FormatRSS  = "rss"
)

// User is a bot user known to the storage layer.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	RegisteredAt time.Time
	LastActiveAt time.Time
}

// newUserPeriod is how long a freshly registered user is considered new.
const newUserPeriod = 24 * time.Hour

// IsNew reports whether the user registered less than a day before now.
func (u *User) IsNew(now time.Time) bool {
	return now.Sub(u.RegisteredAt) < newUserPeriod
}

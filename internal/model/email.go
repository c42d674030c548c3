package model

import "time"

// CategoryUncategorized is the sentinel stored for emails that have not
// been classified yet (or whose classification could not be recovered).
// It is a value, never an absent field: Category must not be empty in
// a persisted record.
const CategoryUncategorized = "uncategorized"

// Email is the unit of work for the triage pipeline.
type Email struct {
	// ID is the provider-assigned message identifier, unique within
	// the collection and immutable.
	ID string `json:"id" db:"id"`

	// Subject is the message subject line.
	Subject string `json:"subject" db:"subject"`

	// From is the raw "Display Name <address>" header value. Parsing
	// it apart is a presentation concern; the pipeline stores it
	// verbatim.
	From string `json:"from" db:"sender"`

	// Snippet is the short preview text returned by the provider.
	Snippet string `json:"snippet" db:"snippet"`

	// Body is the plain-text message body. Empty until fetched.
	Body string `json:"body" db:"body"`

	// Timestamp is the original Date header value, preserved verbatim.
	Timestamp string `json:"timestamp" db:"timestamp"`

	// Category is the classification result key, or
	// CategoryUncategorized. Never empty.
	Category string `json:"category" db:"category"`

	// Summary holds the generated summary once Summarize has run.
	Summary string `json:"summary,omitempty" db:"summary"`

	// ActionItems holds the extracted action items. An empty string
	// with Summarized=true means "none found"; it is only ever set
	// together with Summary.
	ActionItems string `json:"actionItems,omitempty" db:"action_items"`

	// Summarized records whether a summarization call has completed
	// for this email, distinguishing "no action items" from "not yet
	// summarized".
	Summarized bool `json:"summarized" db:"summarized"`

	// IsProcessing is true while a classification call is in flight.
	// Transient: never persisted.
	IsProcessing bool `json:"-" db:"-"`

	// IsSummarizing is true while a summarization call is in flight.
	// Transient: never persisted.
	IsSummarizing bool `json:"-" db:"-"`
}

// Pending reports whether this email still needs classification.
func (e Email) Pending() bool {
	return e.Category == "" || e.Category == CategoryUncategorized
}

// Credential is an OAuth access token with its absolute expiry instant.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the credential exists and has not expired.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Progress describes an in-flight classification batch. It is
// transient state: a nil *Progress means no batch is running.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

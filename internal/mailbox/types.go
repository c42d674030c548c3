package mailbox

import (
	"errors"
	"fmt"
)

// Fallback values substituted for absent headers.
const (
	NoSubject     = "(No Subject)"
	UnknownSender = "(Unknown)"
)

// Message is a normalized mailbox record: the listing order position
// it arrived in, plus the metadata headers the triage pipeline needs.
type Message struct {
	ID      string
	Subject string
	From    string
	Snippet string
	Date    string
}

// Page is one page of mailbox results. NextToken is the opaque
// continuation token for the following page; empty means the listing
// is exhausted.
type Page struct {
	Messages  []Message
	NextToken string
}

// AuthError indicates the mailbox API rejected the credential. It is
// terminal for the whole page: the caller must force re-authentication
// rather than retry.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("mailbox auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

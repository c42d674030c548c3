// Package auth runs the OAuth authorization-code flow against Google
// and turns the issued token into a pipeline credential with an
// absolute expiry instant.
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/nhle/mail-triage/internal/model"
)

// identityScope requests the user's email identity alongside read-only
// mailbox access.
const identityScope = "https://www.googleapis.com/auth/userinfo.email"

// fallbackTokenLifetime is assumed when the provider omits an expiry.
// Google access tokens live an hour; 55 minutes leaves safety margin.
const fallbackTokenLifetime = 55 * time.Minute

// Flow wraps an OAuth client configuration for the interactive
// authorization-code exchange.
type Flow struct {
	config *oauth2.Config
}

// NewFlow reads the OAuth client secret JSON (as downloaded from the
// Google Cloud console) and prepares the flow with read-only mailbox
// plus identity scopes.
func NewFlow(credentialsFile string) (*Flow, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope, identityScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}
	return &Flow{config: config}, nil
}

// AuthURL returns the URL the user must visit to authorize access.
func (f *Flow) AuthURL() string {
	return f.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for a credential with an
// absolute expiry.
func (f *Flow) Exchange(ctx context.Context, authCode string) (model.Credential, error) {
	tok, err := f.config.Exchange(ctx, authCode)
	if err != nil {
		return model.Credential{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return CredentialFromToken(tok, time.Now()), nil
}

// CredentialFromToken converts an issued OAuth token into a pipeline
// credential, substituting the fallback lifetime when the provider
// did not report one.
func CredentialFromToken(tok *oauth2.Token, now time.Time) model.Credential {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(fallbackTokenLifetime)
	}
	return model.Credential{
		AccessToken: tok.AccessToken,
		ExpiresAt:   expiresAt,
	}
}

// Package mailbox wraps the Gmail REST API behind the calls the
// triage pipeline needs: a paginated metadata listing and a full-body
// fetch. Authorization failures surface as *AuthError; everything
// else is returned as-is, without retries, for the caller to decide.
package mailbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	user = "me"

	// Only the inbox is triaged; drafts are never listed.
	listQuery = "in:inbox -in:draft"

	// metadataFetchConcurrency bounds the parallel per-message detail
	// fetches issued for one listing page.
	metadataFetchConcurrency = 8
)

// Client wraps the Gmail API. The access token is supplied per call,
// since the credential is owned by the caller and may be replaced at
// any time; the underlying service is cached per token.
type Client struct {
	opts []option.ClientOption

	mu       sync.Mutex
	srvToken string
	srv      *gmail.Service
}

// NewClient builds a Gmail client. Extra options (endpoint overrides,
// custom HTTP clients) are applied after the per-call token source, so
// tests can redirect the client at a fake server.
func NewClient(opts ...option.ClientOption) *Client {
	return &Client{opts: opts}
}

// service returns a Gmail service bound to accessToken, reusing the
// cached one while the token is unchanged.
func (c *Client) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.srv != nil && c.srvToken == accessToken {
		return c.srv, nil
	}

	var all []option.ClientOption
	if accessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		all = append(all, option.WithTokenSource(ts))
	}
	all = append(all, c.opts...)

	srv, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	c.srv = srv
	c.srvToken = accessToken
	return srv, nil
}

// FetchPage lists up to pageSize inbox messages (first page when
// pageToken is empty) and fetches each message's metadata. Detail
// fetches run concurrently, but the returned page preserves listing
// order. A 401 from any call aborts the whole page with *AuthError.
func (c *Client) FetchPage(ctx context.Context, accessToken string, pageSize int64, pageToken string) (*Page, error) {
	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Messages.List(user).
		MaxResults(pageSize).
		Q(listQuery).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	list, err := call.Do()
	if err != nil {
		return nil, wrapAPIError("listing messages", err)
	}

	page := &Page{NextToken: list.NextPageToken}
	if len(list.Messages) == 0 {
		return page, nil
	}

	// Indexed result slice keeps the assembled page in listing order
	// regardless of fetch completion order.
	page.Messages = make([]Message, len(list.Messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataFetchConcurrency)
	for i, m := range list.Messages {
		g.Go(func() error {
			msg, err := fetchMetadata(gctx, srv, m.Id)
			if err != nil {
				return err
			}
			page.Messages[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return page, nil
}

// fetchMetadata retrieves Subject/From/Date headers and the snippet
// for one message, filling in fallbacks for absent headers.
func fetchMetadata(ctx context.Context, srv *gmail.Service, id string) (Message, error) {
	full, err := srv.Users.Messages.Get(user, id).
		Format("metadata").
		MetadataHeaders("Subject", "From", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return Message{}, wrapAPIError(fmt.Sprintf("fetching message %s", id), err)
	}

	msg := Message{
		ID:      full.Id,
		Subject: NoSubject,
		From:    UnknownSender,
		Snippet: full.Snippet,
	}
	if full.Payload == nil {
		return msg, nil
	}
	for _, h := range full.Payload.Headers {
		switch {
		case strings.EqualFold(h.Name, "Subject"):
			if h.Value != "" {
				msg.Subject = h.Value
			}
		case strings.EqualFold(h.Name, "From"):
			if h.Value != "" {
				msg.From = h.Value
			}
		case strings.EqualFold(h.Name, "Date"):
			msg.Date = h.Value
		}
	}
	return msg, nil
}

// FetchBody retrieves the full message and extracts its plain-text
// body. Messages without a text part yield an empty string.
func (c *Client) FetchBody(ctx context.Context, accessToken, id string) (string, error) {
	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	full, err := srv.Users.Messages.Get(user, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return "", wrapAPIError(fmt.Sprintf("fetching body of %s", id), err)
	}
	if full.Payload == nil {
		return "", nil
	}
	return plainTextBody(full.Payload), nil
}

// plainTextBody walks the MIME tree for the first text/plain part and
// decodes it.
func plainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

// wrapAPIError converts 401 responses into *AuthError and wraps
// everything else with context.
func wrapAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return &AuthError{Message: fmt.Sprintf("%s: %v", op, err)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeGmail serves a minimal slice of the Gmail REST surface: one
// listing response plus per-id metadata/full documents.
type fakeGmail struct {
	listBody   string
	listStatus int
	messages   map[string]string
	msgStatus  map[string]int

	// delays lets a test stagger detail responses to shuffle
	// completion order.
	delays map[string]time.Duration
}

func (f *fakeGmail) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages"):
			if f.listStatus != 0 {
				w.WriteHeader(f.listStatus)
				fmt.Fprintf(w, `{"error":{"code":%d,"message":"request failed"}}`, f.listStatus)
				return
			}
			fmt.Fprint(w, f.listBody)
		default:
			parts := strings.Split(r.URL.Path, "/")
			id := parts[len(parts)-1]
			if d, ok := f.delays[id]; ok {
				time.Sleep(d)
			}
			if status, ok := f.msgStatus[id]; ok {
				w.WriteHeader(status)
				fmt.Fprintf(w, `{"error":{"code":%d,"message":"request failed"}}`, status)
				return
			}
			body, ok := f.messages[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, body)
		}
	})
}

func newTestClient(t *testing.T, f *fakeGmail) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(option.WithEndpoint(srv.URL), option.WithoutAuthentication())
}

func metadataDoc(id, subject, from, date, snippet string) string {
	type header struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	var headers []header
	if subject != "" {
		headers = append(headers, header{"Subject", subject})
	}
	if from != "" {
		headers = append(headers, header{"From", from})
	}
	if date != "" {
		headers = append(headers, header{"Date", date})
	}
	doc := map[string]any{
		"id":      id,
		"snippet": snippet,
		"payload": map[string]any{"headers": headers},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

func TestFetchPagePreservesListingOrder(t *testing.T) {
	f := &fakeGmail{
		listBody: `{"messages":[{"id":"m3"},{"id":"m1"},{"id":"m2"}],"nextPageToken":"tok-2"}`,
		messages: map[string]string{
			"m1": metadataDoc("m1", "one", "a@x", "Mon, 1 Jan 2024 00:00:00 +0000", "s1"),
			"m2": metadataDoc("m2", "two", "b@x", "Tue, 2 Jan 2024 00:00:00 +0000", "s2"),
			"m3": metadataDoc("m3", "three", "c@x", "Wed, 3 Jan 2024 00:00:00 +0000", "s3"),
		},
		// m3 finishes last even though it is listed first.
		delays: map[string]time.Duration{"m3": 30 * time.Millisecond},
	}
	c := newTestClient(t, f)

	page, err := c.FetchPage(context.Background(), "", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "m3", page.Messages[0].ID)
	assert.Equal(t, "m1", page.Messages[1].ID)
	assert.Equal(t, "m2", page.Messages[2].ID)
	assert.Equal(t, "tok-2", page.NextToken)
	assert.Equal(t, "three", page.Messages[0].Subject)
	assert.Equal(t, "s3", page.Messages[0].Snippet)
}

func TestFetchPageNormalizesMissingHeaders(t *testing.T) {
	f := &fakeGmail{
		listBody: `{"messages":[{"id":"m1"}]}`,
		messages: map[string]string{
			"m1": metadataDoc("m1", "", "", "", "a snippet"),
		},
	}
	c := newTestClient(t, f)

	page, err := c.FetchPage(context.Background(), "", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	msg := page.Messages[0]
	assert.Equal(t, NoSubject, msg.Subject)
	assert.Equal(t, UnknownSender, msg.From)
	assert.Equal(t, "", msg.Date)
	assert.Equal(t, "", page.NextToken)
}

func TestFetchPageEmptyMailbox(t *testing.T) {
	f := &fakeGmail{listBody: `{}`}
	c := newTestClient(t, f)

	page, err := c.FetchPage(context.Background(), "", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Empty(t, page.NextToken)
}

func TestFetchPageListingAuthFailure(t *testing.T) {
	f := &fakeGmail{listStatus: http.StatusUnauthorized}
	c := newTestClient(t, f)

	_, err := c.FetchPage(context.Background(), "", 10, "")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestFetchPageDetailAuthFailureAbortsPage(t *testing.T) {
	f := &fakeGmail{
		listBody: `{"messages":[{"id":"m1"},{"id":"m2"}]}`,
		messages: map[string]string{
			"m1": metadataDoc("m1", "one", "a@x", "", "s1"),
		},
		msgStatus: map[string]int{"m2": http.StatusUnauthorized},
	}
	c := newTestClient(t, f)

	_, err := c.FetchPage(context.Background(), "", 10, "")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestFetchPageOtherFailureIsNotAuthError(t *testing.T) {
	f := &fakeGmail{listStatus: http.StatusInternalServerError}
	c := newTestClient(t, f)

	_, err := c.FetchPage(context.Background(), "", 10, "")
	require.Error(t, err)
	assert.False(t, IsAuthError(err))
}

func TestFetchBodyWalksMIMETree(t *testing.T) {
	plain := base64.URLEncoding.EncodeToString([]byte("hello plain body"))
	doc := fmt.Sprintf(`{
		"id": "m1",
		"payload": {
			"mimeType": "multipart/alternative",
			"parts": [
				{"mimeType": "text/html", "body": {"data": "%s"}},
				{"mimeType": "text/plain", "body": {"data": "%s"}}
			]
		}
	}`, base64.URLEncoding.EncodeToString([]byte("<p>html</p>")), plain)

	f := &fakeGmail{messages: map[string]string{"m1": doc}}
	c := newTestClient(t, f)

	body, err := c.FetchBody(context.Background(), "", "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello plain body", body)
}

func TestFetchBodyNoTextPart(t *testing.T) {
	doc := `{"id":"m1","payload":{"mimeType":"application/pdf"}}`
	f := &fakeGmail{messages: map[string]string{"m1": doc}}
	c := newTestClient(t, f)

	body, err := c.FetchBody(context.Background(), "", "m1")
	require.NoError(t, err)
	assert.Equal(t, "", body)
}

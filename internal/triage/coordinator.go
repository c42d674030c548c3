// Package triage implements the email pipeline coordinator: the owner
// of the authoritative in-memory email collection, orchestrating the
// mailbox, classification, and summarization clients while keeping the
// persisted view consistent. Every mutation is keyed by message id
// against the live collection and written through to the store; the
// coordinator's lock is never held across an external call.
package triage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/mail-triage/internal/ai"
	"github.com/nhle/mail-triage/internal/category"
	"github.com/nhle/mail-triage/internal/mailbox"
	"github.com/nhle/mail-triage/internal/model"
	"github.com/nhle/mail-triage/internal/store"
)

// Sentinel filter names understood by EmailsByCategory.
const (
	FilterAll           = "All"
	FilterUncategorized = "Uncategorized"
)

// ErrNotAuthenticated is returned by operations that require a valid
// credential when none is held.
var ErrNotAuthenticated = errors.New("not authenticated")

// MailboxClient is the mailbox dependency of the coordinator. The
// credential is passed per call; it is read on every operation, never
// captured.
type MailboxClient interface {
	FetchPage(ctx context.Context, accessToken string, pageSize int64, pageToken string) (*mailbox.Page, error)
	FetchBody(ctx context.Context, accessToken, id string) (string, error)
}

// Classifier infers a category key for an email. Implementations
// never fail: degraded results are still valid keys.
type Classifier interface {
	Classify(ctx context.Context, content, subject string) string
}

// Summarizer produces a summary and action items for an email.
// Implementations never fail.
type Summarizer interface {
	Summarize(ctx context.Context, content string) ai.Summary
}

// Options tunes a Coordinator.
type Options struct {
	// PageSize is the number of messages per mailbox page.
	PageSize int64

	// Clock overrides time.Now, for expiry tests.
	Clock func() time.Time
}

// Coordinator owns the authoritative email collection and exposes the
// five pipeline operations plus the presentation-facing read surface.
type Coordinator struct {
	store      store.Store
	mailbox    MailboxClient
	classifier Classifier
	summarizer Summarizer
	pageSize   int64
	now        func() time.Time
	log        *logrus.Entry

	mu          sync.Mutex
	cred        *model.Credential
	emails      []model.Email
	nextToken   string
	progress    *model.Progress
	classifying bool
	subscribers map[string]chan Event
}

// New creates a Coordinator. Call Restore to load persisted state
// before invoking operations.
func New(s store.Store, mb MailboxClient, cl Classifier, sm Summarizer, opts Options) *Coordinator {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Coordinator{
		store:       s,
		mailbox:     mb,
		classifier:  cl,
		summarizer:  sm,
		pageSize:    pageSize,
		now:         clock,
		log:         logrus.WithField("component", "triage"),
		subscribers: make(map[string]chan Event),
	}
}

// Restore loads the persisted credential, collection, and continuation
// token. A credential whose expiry has passed is treated as absent and
// cleared; the stale collection is still restored so it reappears
// immediately after re-login without a redundant fetch.
func (c *Coordinator) Restore(ctx context.Context) error {
	cred, err := c.store.LoadCredential(ctx)
	if err != nil {
		return fmt.Errorf("restoring credential: %w", err)
	}
	if cred != nil && !cred.Valid(c.now()) {
		c.log.Info("persisted credential expired, forcing re-login")
		if err := c.store.ClearCredential(ctx); err != nil {
			return fmt.Errorf("clearing expired credential: %w", err)
		}
		cred = nil
	}

	emails, err := c.store.LoadEmails(ctx)
	if err != nil {
		return fmt.Errorf("restoring emails: %w", err)
	}
	token, err := c.store.LoadNextPageToken(ctx)
	if err != nil {
		return fmt.Errorf("restoring page token: %w", err)
	}

	c.mu.Lock()
	c.cred = cred
	c.emails = emails
	c.nextToken = token
	c.mu.Unlock()
	return nil
}

// Login stores a fresh credential and mirrors it in memory.
func (c *Coordinator) Login(ctx context.Context, cred model.Credential) error {
	if !cred.Valid(c.now()) {
		return fmt.Errorf("refusing to store an invalid or expired credential")
	}
	if err := c.store.SaveCredential(ctx, cred); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	c.mu.Lock()
	c.cred = &cred
	c.mu.Unlock()
	c.notify(EventAuth)
	return nil
}

// Logout clears the credential, the collection, any in-flight batch
// progress, and all persisted keys in one step.
func (c *Coordinator) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing persisted state: %w", err)
	}

	c.mu.Lock()
	c.cred = nil
	c.emails = nil
	c.nextToken = ""
	c.progress = nil
	c.mu.Unlock()

	c.notify(EventAuth)
	c.notify(EventEmails)
	return nil
}

// credential returns the current access token, or an error when the
// held credential is absent or expired (which also clears it).
func (c *Coordinator) credential(ctx context.Context) (string, error) {
	c.mu.Lock()
	cred := c.cred
	c.mu.Unlock()

	if cred == nil {
		return "", ErrNotAuthenticated
	}
	if !cred.Valid(c.now()) {
		c.expireCredential(ctx)
		return "", ErrNotAuthenticated
	}
	return cred.AccessToken, nil
}

// expireCredential drops the credential from memory and storage and
// announces the auth change. The collection is left intact.
func (c *Coordinator) expireCredential(ctx context.Context) {
	c.mu.Lock()
	c.cred = nil
	c.mu.Unlock()
	if err := c.store.ClearCredential(ctx); err != nil {
		c.log.WithError(err).Error("failed to clear expired credential")
	}
	c.notify(EventAuth)
}

// FetchPage retrieves one mailbox page. An empty pageToken means a
// bare refresh: the fetched page replaces the whole collection. A
// non-empty token appends, merging by id with first-seen records kept.
// On success the collection and the new continuation token are
// persisted. On auth expiry the credential is cleared and the typed
// error surfaces so the caller can prompt re-authentication; on any
// other failure prior state is left untouched.
func (c *Coordinator) FetchPage(ctx context.Context, pageToken string) error {
	token, err := c.credential(ctx)
	if err != nil {
		return err
	}

	page, err := c.mailbox.FetchPage(ctx, token, c.pageSize, pageToken)
	if err != nil {
		if mailbox.IsAuthError(err) {
			c.expireCredential(ctx)
			return fmt.Errorf("fetching page: %w", err)
		}
		return fmt.Errorf("fetching page: %w", err)
	}

	fetched := make([]model.Email, 0, len(page.Messages))
	for _, m := range page.Messages {
		fetched = append(fetched, model.Email{
			ID:        m.ID,
			Subject:   m.Subject,
			From:      m.From,
			Snippet:   m.Snippet,
			Timestamp: m.Date,
			Category:  model.CategoryUncategorized,
		})
	}

	c.mu.Lock()
	if pageToken == "" {
		c.emails = fetched
	} else {
		seen := make(map[string]struct{}, len(c.emails))
		for _, e := range c.emails {
			seen[e.ID] = struct{}{}
		}
		for _, e := range fetched {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			c.emails = append(c.emails, e)
		}
	}
	c.nextToken = page.NextToken

	perr := c.store.ReplaceEmails(ctx, c.emails)
	if perr == nil {
		perr = c.store.SaveNextPageToken(ctx, page.NextToken)
	}
	c.mu.Unlock()

	if perr != nil {
		return fmt.Errorf("persisting page: %w", perr)
	}
	c.notify(EventEmails)
	return nil
}

// ClassifyPending classifies every email whose category is still the
// sentinel, strictly sequentially: the classification API is
// rate-limited per caller, and a sequential loop with the client's own
// backoff is the simplest strategy that respects that limit. A second
// call while a batch is running, or a call with nothing pending, is a
// no-op with no events fired. Whatever happens, no email is left with
// IsProcessing set once this returns.
func (c *Coordinator) ClassifyPending(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.classifying {
		c.mu.Unlock()
		return nil
	}
	var pending []string
	for _, e := range c.emails {
		if e.Pending() {
			pending = append(pending, e.ID)
		}
	}
	if len(pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.classifying = true
	c.progress = &model.Progress{Processed: 0, Total: len(pending)}
	c.mu.Unlock()
	c.notify(EventProgress)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classification batch failed: %v", r)
		}
		c.mu.Lock()
		for i := range c.emails {
			c.emails[i].IsProcessing = false
		}
		c.progress = nil
		c.classifying = false
		c.mu.Unlock()
		c.notify(EventProgress)
	}()

	for done, id := range pending {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		c.mu.Lock()
		idx := c.indexOf(id)
		if idx < 0 {
			// Collection was reset mid-batch; nothing left to mark.
			c.mu.Unlock()
			continue
		}
		c.emails[idx].IsProcessing = true
		snapshot := c.emails[idx]
		perr := c.store.UpdateEmail(ctx, snapshot)
		c.mu.Unlock()
		if perr != nil {
			return fmt.Errorf("persisting email %s: %w", id, perr)
		}
		c.notify(EventEmails)

		content := snapshot.Snippet
		if content == "" {
			content = snapshot.Body
		}
		key := c.classifier.Classify(ctx, content, snapshot.Subject)

		// Read-modify-write against the live collection: the record
		// may have changed while the call was in flight.
		c.mu.Lock()
		if idx := c.indexOf(id); idx >= 0 {
			c.emails[idx].Category = key
			c.emails[idx].IsProcessing = false
			perr = c.store.UpdateEmail(ctx, c.emails[idx])
		}
		if c.progress != nil {
			c.progress.Processed = done + 1
		}
		c.mu.Unlock()
		if perr != nil {
			return fmt.Errorf("persisting email %s: %w", id, perr)
		}
		c.notify(EventEmails)
		c.notify(EventProgress)
	}
	return nil
}

// Summarize generates a summary and action items for one email. An
// unknown id, or an email already being summarized, is a no-op.
// Re-invoking on a summarized email overwrites the prior result. The
// summary, action items, and flag are committed together; the flag is
// cleared on every exit path.
func (c *Coordinator) Summarize(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 || c.emails[idx].IsSummarizing {
		c.mu.Unlock()
		return nil
	}
	c.emails[idx].IsSummarizing = true
	snapshot := c.emails[idx]
	cred := c.cred
	perr := c.store.UpdateEmail(ctx, snapshot)
	c.mu.Unlock()
	if perr != nil {
		c.clearSummarizing(id)
		return fmt.Errorf("persisting email %s: %w", id, perr)
	}
	c.notify(EventEmails)
	defer c.clearSummarizing(id)

	// Prefer the full body; fetch it lazily when the credential still
	// allows it, falling back to the snippet.
	body := snapshot.Body
	if body == "" && cred != nil && cred.Valid(c.now()) {
		fetched, err := c.mailbox.FetchBody(ctx, cred.AccessToken, id)
		if err != nil {
			c.log.WithError(err).WithField("id", id).Warn("body fetch failed, summarizing snippet")
		} else if fetched != "" {
			body = fetched
			c.mu.Lock()
			if i := c.indexOf(id); i >= 0 {
				c.emails[i].Body = fetched
			}
			c.mu.Unlock()
		}
	}
	if body == "" {
		body = snapshot.Snippet
	}

	content := fmt.Sprintf("Subject: %s\nFrom: %s\nContent: %s", snapshot.Subject, snapshot.From, body)
	result := c.summarizer.Summarize(ctx, content)

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.emails[i].Summary = result.Summary
		c.emails[i].ActionItems = result.ActionItems
		c.emails[i].Summarized = true
		c.emails[i].IsSummarizing = false
		perr = c.store.UpdateEmail(ctx, c.emails[i])
	}
	c.mu.Unlock()
	if perr != nil {
		return fmt.Errorf("persisting email %s: %w", id, perr)
	}
	c.notify(EventEmails)
	return nil
}

// clearSummarizing drops the in-flight flag for id if still present.
func (c *Coordinator) clearSummarizing(id string) {
	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.emails[i].IsSummarizing = false
	}
	c.mu.Unlock()
}

// indexOf returns the position of id in the collection, or -1.
// Callers must hold c.mu.
func (c *Coordinator) indexOf(id string) int {
	for i := range c.emails {
		if c.emails[i].ID == id {
			return i
		}
	}
	return -1
}

// IsAuthenticated reports whether a valid, non-expired credential is held.
func (c *Coordinator) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cred != nil && c.cred.Valid(c.now())
}

// Emails returns a copy of the collection in fetch order.
func (c *Coordinator) Emails() []model.Email {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Email, len(c.emails))
	copy(out, c.emails)
	return out
}

// NextPageToken returns the continuation token for the next page,
// empty when the listing is exhausted or nothing has been fetched.
func (c *Coordinator) NextPageToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextToken
}

// Progress returns a copy of the in-flight batch progress, or nil
// when no classification batch is running.
func (c *Coordinator) Progress() *model.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return nil
	}
	p := *c.progress
	return &p
}

// Categories returns the derived filter list: "All", "Uncategorized",
// and one display-cased entry per distinct non-sentinel category
// present in the collection, sorted.
func (c *Coordinator) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	distinct := make(map[string]struct{})
	for _, e := range c.emails {
		if !e.Pending() {
			distinct[e.Category] = struct{}{}
		}
	}
	names := make([]string, 0, len(distinct))
	for key := range distinct {
		names = append(names, category.DisplayName(key))
	}
	sort.Strings(names)

	return append([]string{FilterAll, FilterUncategorized}, names...)
}

// EmailsByCategory filters the collection by a display-cased category
// name, honoring the "All" and "Uncategorized" sentinels.
func (c *Coordinator) EmailsByCategory(name string) []model.Email {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.Email
	for _, e := range c.emails {
		switch name {
		case FilterAll:
			out = append(out, e)
		case FilterUncategorized:
			if e.Pending() {
				out = append(out, e)
			}
		default:
			if e.Category == strings.ToLower(name) {
				out = append(out, e)
			}
		}
	}
	return out
}

// CategoryCounts returns the number of emails per filter name,
// including the "All" and "Uncategorized" sentinels.
func (c *Coordinator) CategoryCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := map[string]int{
		FilterAll:           len(c.emails),
		FilterUncategorized: 0,
	}
	for _, e := range c.emails {
		if e.Pending() {
			counts[FilterUncategorized]++
			continue
		}
		counts[category.DisplayName(e.Category)]++
	}
	return counts
}

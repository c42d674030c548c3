package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-triage/internal/model"
	"github.com/nhle/mail-triage/tests/testutil"
)

func TestCredentialRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(55 * time.Minute).Truncate(time.Millisecond)
	err := s.SaveCredential(ctx, model.Credential{
		AccessToken: "tok-123",
		ExpiresAt:   expiry,
	})
	require.NoError(t, err)

	cred, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "tok-123", cred.AccessToken)
	assert.True(t, cred.ExpiresAt.Equal(expiry))
}

func TestLoadCredentialAbsent(t *testing.T) {
	s := testutil.NewTestStore(t)

	cred, err := s.LoadCredential(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestClearCredential(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCredential(ctx, model.Credential{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.ClearCredential(ctx))

	cred, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestReplaceAndLoadEmailsPreservesOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	in := []model.Email{
		{ID: "c", Subject: "third", Category: "order"},
		{ID: "a", Subject: "first", Category: model.CategoryUncategorized},
		{ID: "b", Subject: "second", Category: "refund", Summary: "sum", ActionItems: "do x", Summarized: true},
	}
	require.NoError(t, s.ReplaceEmails(ctx, in))

	out, err := s.LoadEmails(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
	assert.Equal(t, "b", out[2].ID)
	assert.Equal(t, "sum", out[2].Summary)
	assert.Equal(t, "do x", out[2].ActionItems)
	assert.True(t, out[2].Summarized)
}

func TestReplaceEmailsForcesSentinelCategory(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceEmails(ctx, []model.Email{{ID: "x"}}))

	out, err := s.LoadEmails(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.CategoryUncategorized, out[0].Category)
}

func TestUpdateEmailKeepsPosition(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceEmails(ctx, []model.Email{
		{ID: "a", Category: model.CategoryUncategorized},
		{ID: "b", Category: model.CategoryUncategorized},
	}))

	require.NoError(t, s.UpdateEmail(ctx, model.Email{ID: "a", Category: "invoice"}))

	out, err := s.LoadEmails(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "invoice", out[0].Category)
	assert.Equal(t, "b", out[1].ID)
}

func TestUpdateEmailUnknownID(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.UpdateEmail(context.Background(), model.Email{ID: "nope"})
	assert.Error(t, err)
}

func TestNextPageTokenRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	tok, err := s.LoadNextPageToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SaveNextPageToken(ctx, "page-2"))

	tok, err = s.LoadNextPageToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "page-2", tok)
}

func TestClearRemovesEverything(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCredential(ctx, model.Credential{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.ReplaceEmails(ctx, []model.Email{{ID: "a"}}))
	require.NoError(t, s.SaveNextPageToken(ctx, "page-2"))

	require.NoError(t, s.Clear(ctx))

	cred, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)

	emails, err := s.LoadEmails(ctx)
	require.NoError(t, err)
	assert.Empty(t, emails)

	tok, err := s.LoadNextPageToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

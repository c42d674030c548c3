package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/mail-triage/internal/category"
)

// classifyExcerptLimit caps how much of the email body is embedded in
// the classification prompt. A tuning knob, not a correctness
// constraint.
const classifyExcerptLimit = 500

// Classifier infers a category key for an email via the language
// model. It never fails: rate limits and transport errors are retried
// inside the shared client, and anything left over degrades to the
// "other" catch-all.
type Classifier struct {
	client     *Client
	categories *category.Set
	log        *logrus.Entry
}

// NewClassifier creates a classifier bound to a taxonomy.
func NewClassifier(client *Client, categories *category.Set) *Classifier {
	return &Classifier{
		client:     client,
		categories: categories,
		log:        logrus.WithField("component", "classifier"),
	}
}

// Classify returns a category key for the given content. The result
// is always a member of the taxonomy key set; raw model output is
// normalized and validated, never passed through.
func (c *Classifier) Classify(ctx context.Context, content, subject string) string {
	prompt := c.buildPrompt(content, subject)

	raw, err := c.client.generateWithRetry(ctx, prompt, genParams{
		Temperature:     0.1,
		MaxOutputTokens: 10,
	})
	if err != nil {
		c.log.WithError(err).Warn("classification degraded to fallback category")
		return category.KeyOther
	}

	return c.categories.Normalize(raw)
}

func (c *Classifier) buildPrompt(content, subject string) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant that classifies emails.\n")
	sb.WriteString(fmt.Sprintf("Categories: %s.\n", strings.Join(c.categories.Keys(), ", ")))
	sb.WriteString("Return ONLY the category key (lowercase).\n\n")
	sb.WriteString(fmt.Sprintf("Subject: %s\n", subject))
	sb.WriteString(fmt.Sprintf("Content: %s\n", truncate(content, classifyExcerptLimit)))
	return sb.String()
}

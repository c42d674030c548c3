package ai

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// summaryInputLimit caps how much email content is embedded in
	// the summarization prompt.
	summaryInputLimit = 2000

	// summaryOutputLimit bounds the returned summary so downstream
	// rendering cost stays fixed.
	summaryOutputLimit = 300
)

// Fallback texts for the degraded paths. These are data, not errors:
// the summarization boundary never raises.
const (
	summaryNoContent   = "No content available"
	summaryUnavailable = "Unable to generate summary"
)

// Summary is the result of one summarization call. Summary and
// ActionItems are always populated together; an empty ActionItems
// means "none found".
type Summary struct {
	Summary     string
	ActionItems string
}

// The model is prompted for a fixed two-field format; these tolerant
// patterns pull the fields back out of the raw response.
var (
	summaryPattern = regexp.MustCompile(`(?s)Summary:\s*(.+?)(?:Action Items:|$)`)
	actionsPattern = regexp.MustCompile(`(?s)Action Items:\s*(.+)$`)
)

// Summarizer produces a short summary and action-item list for one
// email. Like the classifier it never fails: every error path yields
// a degraded but well-formed Summary.
type Summarizer struct {
	client *Client
	log    *logrus.Entry
}

// NewSummarizer creates a summarizer on the shared Gemini client.
func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{
		client: client,
		log:    logrus.WithField("component", "summarizer"),
	}
}

// Summarize generates a summary and action items for content.
// Empty or whitespace-only input short-circuits without an API call.
func (s *Summarizer) Summarize(ctx context.Context, content string) Summary {
	if strings.TrimSpace(content) == "" {
		return Summary{Summary: summaryNoContent, ActionItems: ""}
	}

	raw, err := s.client.generateWithRetry(ctx, buildSummaryPrompt(content), genParams{
		Temperature:     0.3,
		MaxOutputTokens: 300,
	})
	if err != nil {
		s.log.WithError(err).Warn("summarization degraded to fallback")
		return Summary{Summary: summaryUnavailable, ActionItems: ""}
	}

	return parseSummary(raw)
}

func buildSummaryPrompt(content string) string {
	var sb strings.Builder
	sb.WriteString("Please analyze this email and provide:\n\n")
	sb.WriteString("1. A concise summary (2-3 sentences max)\n")
	sb.WriteString("2. Any action items or tasks that need to be done\n\n")
	sb.WriteString("Email content:\n")
	sb.WriteString(truncate(content, summaryInputLimit))
	sb.WriteString("\n\nFormat your response exactly like this:\n")
	sb.WriteString("Summary: [brief summary of the email content]\n")
	sb.WriteString(`Action Items: [specific actions needed, or "None" if no actions required]`)
	return sb.String()
}

// parseSummary extracts the two-field format from a raw model
// response. A response missing the Summary field degrades; a literal
// "None" in Action Items is normalized to empty, per the prompt
// contract ("None" is case-sensitive there).
func parseSummary(raw string) Summary {
	summary := summaryUnavailable
	if m := summaryPattern.FindStringSubmatch(raw); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			summary = s
		}
	}

	actionItems := ""
	if m := actionsPattern.FindStringSubmatch(raw); m != nil {
		actionItems = strings.TrimSpace(m[1])
	}
	if actionItems == "None" {
		actionItems = ""
	}

	return Summary{
		Summary:     truncate(summary, summaryOutputLimit),
		ActionItems: actionItems,
	}
}

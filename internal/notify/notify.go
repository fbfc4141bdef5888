// Package notify makes guard.EscalateToOperator's "operator
// escalation channel" concrete: a Slack webhook poster, and a log
// fallback for projects that haven't configured one. Neither stands up
// a bot server or listens for Slack events — this is a one-way,
// fire-and-forget notification path, not a chat-ops surface.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/slack-go/slack"
)

// ErrWebhookNotConfigured is returned by SlackNotifier.Notify when no
// webhook URL has been set.
var ErrWebhookNotConfigured = errors.New("notify: slack webhook url not configured")

// DeliveryTimeout bounds a single webhook POST so an unreachable or
// slow Slack endpoint can never turn escalation into a blocking call.
const DeliveryTimeout = 10 * time.Second

// SlackNotifier posts escalation messages to a single incoming
// webhook. It implements guard.Notifier.
type SlackNotifier struct {
	WebhookURL string

	// postWebhook is overridable in tests.
	postWebhook func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// NewSlackNotifier returns a SlackNotifier posting to webhookURL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{WebhookURL: webhookURL, postWebhook: slack.PostWebhookContext}
}

// Notify posts subject/body as a single Slack message, bounded by
// DeliveryTimeout.
func (n *SlackNotifier) Notify(subject, body string) error {
	if n.WebhookURL == "" {
		return ErrWebhookNotConfigured
	}
	if n.postWebhook == nil {
		n.postWebhook = slack.PostWebhookContext
	}
	ctx, cancel := context.WithTimeout(context.Background(), DeliveryTimeout)
	defer cancel()

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("*%s*\n```%s```", subject, truncate(body, 3000)),
	}
	return n.postWebhook(ctx, n.WebhookURL, msg)
}

// truncate bounds body to at most n runes, since Slack rejects
// messages over its own size limit and a long stderr capture
// shouldn't cause the escalation itself to fail.
func truncate(body string, n int) string {
	r := []rune(body)
	if len(r) <= n {
		return body
	}
	return string(r[:n]) + "… (truncated)"
}

// LogNotifier writes escalation messages to w instead of Slack, for
// projects that haven't configured a webhook. It implements
// guard.Notifier and never fails.
type LogNotifier struct {
	W io.Writer
}

// NewLogNotifier returns a LogNotifier writing to w.
func NewLogNotifier(w io.Writer) *LogNotifier {
	return &LogNotifier{W: w}
}

// Notify writes subject/body to the configured writer. It always
// returns nil — a missing or full log destination must never prevent
// a non-blocking phase from continuing.
func (n *LogNotifier) Notify(subject, body string) error {
	fmt.Fprintf(n.W, "[operator escalation] %s: %s\n", subject, body)
	return nil
}

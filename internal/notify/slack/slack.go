// Package slack sends escalation notices to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/wardwatch/internal/ward"
)

const httpTimeout = 10 * time.Second

// Notifier posts escalation notices to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts an escalation notice to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, esc *ward.Escalation) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(esc)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(esc *ward.Escalation) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(esc),
			{"type": "divider"},
			fieldsBlock(esc),
			{"type": "divider"},
			contextBlock(esc),
		},
	}
}

func headerBlock(esc *ward.Escalation) map[string]any {
	text := fmt.Sprintf("\U0001f6a8 Escalation: %s (Room %d)", esc.Name, esc.Room)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(esc *ward.Escalation) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Patient:* %s", esc.Name),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Room:* %d", esc.Room),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Diagnosis:* %s", esc.Diagnosis),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Active alerts:* %d", esc.ActiveAlerts),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func contextBlock(esc *ward.Escalation) map[string]any {
	ts := esc.At
	if ts.IsZero() {
		ts = time.Now()
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("wardwatch • patient %d • %s", esc.PatientID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

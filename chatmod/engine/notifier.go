package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AuditEvent is the debug/audit record emitted after a completed escalation
// branch.
type AuditEvent struct {
	Label     string
	GroupID   int64
	UserID    int64
	MessageID int64
	Evidence  *Evidence
}

type Notifier interface {
	SendAudit(ctx context.Context, evt *AuditEvent) error
}

type SlackNotifier struct {
	SlackWebhookURL string
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

func (n *SlackNotifier) SendAudit(ctx context.Context, evt *AuditEvent) error {
	msg := fmt.Sprintf("🧹 %s\ngroup `%d` / user `%d` / message `%d`\n", evt.Label, evt.GroupID, evt.UserID, evt.MessageID)
	if evt.Evidence != nil {
		msg += fmt.Sprintf("evidence `%d/%d`\n", evt.Evidence.ChannelID, evt.Evidence.MessageID)
	}
	return n.sendSlackMsg(ctx, msg)
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := http.DefaultClient
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

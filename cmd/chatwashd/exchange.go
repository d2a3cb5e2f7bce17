package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chatwash/chatwash/chatmod/engine"
)

// ChannelExchange coordinates with cooperating moderation bots through two
// private channels: one holding forwarded evidence copies, one carrying
// machine-readable exchange records.
type ChannelExchange struct {
	Bot    *BotClient
	Logger *slog.Logger

	// EvidenceChannelID receives forwarded copies of violating messages.
	// ExchangeChannelID carries the JSON coordination records.
	EvidenceChannelID int64
	ExchangeChannelID int64
}

type exchangeRecord struct {
	Kind    string `json:"kind"`
	Action  string `json:"action,omitempty"`
	GroupID int64  `json:"group_id,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
	Message int64  `json:"message_id,omitempty"`
	Scope   string `json:"scope,omitempty"`
	Until   string `json:"until,omitempty"`
}

func (x *ChannelExchange) send(ctx context.Context, rec exchangeRecord) error {
	if x.ExchangeChannelID == 0 {
		return nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return x.Bot.call(ctx, "sendMessage", map[string]any{
		"chat_id": x.ExchangeChannelID,
		"text":    string(body),
	}, nil)
}

// CaptureEvidence forwards the offending message into the evidence channel and
// annotates the copy with the decision record. The forward must succeed; the
// annotation is best effort.
func (x *ChannelExchange) CaptureEvidence(ctx context.Context, msg *engine.Message, action, reason, category, extra string) (*engine.Evidence, error) {
	if x.EvidenceChannelID == 0 {
		return nil, fmt.Errorf("no evidence channel configured")
	}
	var fwd struct {
		MessageID int64 `json:"message_id"`
	}
	err := x.Bot.call(ctx, "forwardMessage", map[string]any{
		"chat_id":              x.EvidenceChannelID,
		"from_chat_id":         msg.Chat.ID,
		"message_id":           msg.ID,
		"disable_notification": true,
	}, &fwd)
	if err != nil {
		return nil, fmt.Errorf("forwarding evidence copy: %w", err)
	}

	note := fmt.Sprintf("action: %s\nreason: %s\ncategory: %s", action, reason, category)
	if extra != "" {
		note += "\nextra: " + extra
	}
	if msg.From != nil {
		note += fmt.Sprintf("\nuser: %d", msg.From.ID)
	}
	err = x.Bot.call(ctx, "sendMessage", map[string]any{
		"chat_id":              x.EvidenceChannelID,
		"reply_to_message_id":  fwd.MessageID,
		"text":                 note,
		"disable_notification": true,
	}, nil)
	if err != nil {
		x.Logger.Warn("annotating evidence failed", "group", msg.Chat.ID, "message", msg.ID, "err", err)
	}
	return &engine.Evidence{ChannelID: x.EvidenceChannelID, MessageID: fwd.MessageID}, nil
}

func (x *ChannelExchange) DeclareMessage(ctx context.Context, groupID, messageID int64) error {
	return x.send(ctx, exchangeRecord{Kind: "declare", GroupID: groupID, Message: messageID})
}

func (x *ChannelExchange) RequestAssist(ctx context.Context, action string, groupID, userID int64, scope string) error {
	return x.send(ctx, exchangeRecord{Kind: "assist", Action: action, GroupID: groupID, UserID: userID, Scope: scope})
}

func (x *ChannelExchange) ShareBadUser(ctx context.Context, userID int64) error {
	return x.send(ctx, exchangeRecord{Kind: "bad-user", UserID: userID})
}

func (x *ChannelExchange) ShareWatchBanUser(ctx context.Context, userID int64, encryptedUntil string) error {
	return x.send(ctx, exchangeRecord{Kind: "watch-ban", UserID: userID, Until: encryptedUntil})
}

func (x *ChannelExchange) PropagateScore(ctx context.Context, userID int64) error {
	return x.send(ctx, exchangeRecord{Kind: "score", UserID: userID})
}

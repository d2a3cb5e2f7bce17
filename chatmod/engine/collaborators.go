package engine

import (
	"context"
)

// Membership statuses that count as a legitimate presence in a chat.
var recognizedMemberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
	"restricted":    true,
}

type ChatMember struct {
	Status string
}

// ChatClient is the messaging transport consumed by the engine. Lookup misses
// and transient failures surface as errors; the engine treats them as "feature
// absent" and keeps evaluating.
type ChatClient interface {
	GetGroupDescription(ctx context.Context, groupID int64) (string, error)
	GetPinnedMessageText(ctx context.Context, groupID int64) (string, error)
	GetGroupStickerSetName(ctx context.Context, groupID int64) (string, error)

	// ResolveUsername maps a public username to a peer. kind is "user" or
	// "channel"; empty kind means the username is unoccupied.
	ResolveUsername(ctx context.Context, username string) (kind string, peerID int64, err error)
	// GetChatMember returns found=false when the user has no membership
	// record at all.
	GetChatMember(ctx context.Context, groupID, userID int64) (member *ChatMember, found bool, err error)

	DeleteMessage(ctx context.Context, groupID, messageID int64) error
	BanMember(ctx context.Context, groupID, userID int64) error
	UnbanMember(ctx context.Context, groupID, userID int64) error

	// DownloadImage fetches the message's photo to a temporary local file.
	// Empty path means there was nothing to download. The caller owns the
	// file and must remove it.
	DownloadImage(ctx context.Context, msg *Message) (path string, err error)
}

// Evidence is the handle returned by a successful evidence capture. All
// escalation side effects are gated on holding one.
type Evidence struct {
	ChannelID int64
	MessageID int64
}

// Exchange coordinates with cooperating moderation bots: evidence capture,
// declared-message marking, assistance requests, and state sharing.
type Exchange interface {
	CaptureEvidence(ctx context.Context, msg *Message, action, reason, category, extra string) (*Evidence, error)
	DeclareMessage(ctx context.Context, groupID, messageID int64) error
	// RequestAssist asks peers to repeat an action ("ban" or "delete") for
	// the user. scope is empty or "global".
	RequestAssist(ctx context.Context, action string, groupID, userID int64, scope string) error
	ShareBadUser(ctx context.Context, userID int64) error
	ShareWatchBanUser(ctx context.Context, userID int64, encryptedUntil string) error
	PropagateScore(ctx context.Context, userID int64) error
}

// Optional structured command classifier; when it claims a message, the
// bot-command heuristic stands down.
type CommandClassifier interface {
	CommandType(msg *Message) string
}

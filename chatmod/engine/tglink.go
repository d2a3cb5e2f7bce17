package engine

import (
	"context"
	"strings"

	"github.com/chatwash/chatwash/chatmod/wordstore"
)

// isTelegramLink detects outbound links or mentions pointing at chats other
// than this group's own whitelisted surface. Links that match the group's
// canonical link, or appear verbatim in the description or pinned message,
// are bypassed; everything else is a violation.
func (eng *Engine) isTelegramLink(ctx context.Context, msg *Message) bool {
	gid := msg.Chat.ID
	description := eng.Meta.Description(ctx, gid)
	pinnedText := eng.Meta.PinnedText(ctx, gid)

	// check links
	selfLink := msg.ChannelLink()
	var tgLinks, bypassed []string
	for _, link := range msg.AllLinks() {
		if !eng.Words.Match(ctx, wordstore.CategoryTgl, link) {
			continue
		}
		tgLinks = append(tgLinks, link)
		if strings.Contains(link+"/", selfLink+"/") ||
			(description != "" && strings.Contains(description, link)) ||
			(pinnedText != "" && strings.Contains(pinnedText, link)) {
			bypassed = append(bypassed, link)
		}
	}
	if len(bypassed) != len(tgLinks) {
		return true
	}

	// check remaining text with the bypassed links blanked out
	text := msg.PlainText()
	for _, link := range bypassed {
		text = strings.ReplaceAll(text, link, "")
	}
	if eng.Words.Match(ctx, wordstore.CategoryTgl, text) {
		return true
	}

	// check mentions
	for _, en := range msg.Entities {
		if en.Type != EntityMention {
			continue
		}
		username := strings.TrimPrefix(en.Text, "@")
		if username == "" {
			continue
		}
		if msg.Chat.Username != "" && username == msg.Chat.Username {
			continue
		}
		if description != "" && strings.Contains(description, username) {
			continue
		}
		if pinnedText != "" && strings.Contains(pinnedText, username) {
			continue
		}

		kind, peerID, err := eng.Chat.ResolveUsername(ctx, username)
		if err != nil {
			eng.Logger.Warn("username resolution failed", "username", username, "err", err)
			continue
		}
		switch kind {
		case "channel":
			if ok, err := eng.Configs.IsExceptChannel(ctx, peerID); err == nil && ok {
				continue
			}
			return true
		case "user":
			member, found, err := eng.Chat.GetChatMember(ctx, gid, peerID)
			if err != nil {
				continue
			}
			if !found {
				return true
			}
			if member != nil && !recognizedMemberStatuses[member.Status] {
				return true
			}
		}
	}
	return false
}

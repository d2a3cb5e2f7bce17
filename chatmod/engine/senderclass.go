package engine

import (
	"context"
	"time"
)

// isClassC reports whether the sender is exempt: a group admin, this bot
// itself, or a known cooperating bot. Class C bypasses nearly all checks.
func (eng *Engine) isClassC(ctx context.Context, msg *Message) bool {
	if msg.From == nil {
		return false
	}
	if msg.From.IsSelf || msg.From.ID == eng.SelfID {
		return true
	}
	if ok, err := eng.Configs.IsGroupAdmin(ctx, msg.Chat.ID, msg.From.ID); err == nil && ok {
		return true
	}
	if ok, err := eng.Configs.IsKnownBot(ctx, msg.From.ID); err == nil && ok {
		return true
	}
	return false
}

// isClassD reports whether the sender (or the forward origin) is permanently
// bad. Class D users are already banned elsewhere and never enter escalation.
func (eng *Engine) isClassD(ctx context.Context, msg *Message) bool {
	if msg.From != nil {
		if bad, err := eng.Users.IsBad(ctx, msg.From.ID); err == nil && bad {
			return true
		}
	}
	if msg.ForwardFrom != nil {
		if bad, err := eng.Users.IsBad(ctx, msg.ForwardFrom.ID); err == nil && bad {
			return true
		}
	}
	return false
}

// isClassE reports whether the message carries exception-listed content:
// a forward from a whitelisted channel, a whitelisted game, or content whose
// key is on the exception list. Class E exempts spam-pattern checks only.
func (eng *Engine) isClassE(ctx context.Context, msg *Message) bool {
	if msg.ForwardFromChat != nil {
		if ok, err := eng.Configs.IsExceptChannel(ctx, msg.ForwardFromChat.ID); err == nil && ok {
			return true
		}
	}
	if msg.Game != nil {
		if ok, err := eng.Configs.IsExceptContent(ctx, msg.Game.ShortName); err == nil && ok {
			return true
		}
	}
	if key := msg.ContentKey(); key != "" {
		if ok, err := eng.Configs.IsExceptContent(ctx, key); err == nil && ok {
			return true
		}
	}
	return false
}

// isDetectedUser reports whether the sender triggered a violation in this
// group within the suppression window.
func (eng *Engine) isDetectedUser(ctx context.Context, groupID, userID int64) bool {
	last, err := eng.Users.LastDetected(ctx, userID, groupID)
	if err != nil {
		eng.Logger.Warn("detection lookup failed", "user", userID, "err", err)
		return false
	}
	if last == 0 {
		return false
	}
	return time.Now().Unix()-last < int64(eng.detectionWindow().Seconds())
}

// highScore returns the user's total score when it crosses the ban threshold,
// else zero.
func (eng *Engine) highScore(ctx context.Context, userID int64) float64 {
	total, err := eng.Users.TotalScore(ctx, userID)
	if err != nil {
		eng.Logger.Warn("score lookup failed", "user", userID, "err", err)
		return 0
	}
	if total >= 3.0 {
		return total
	}
	return 0
}

func (eng *Engine) sessionRecorded(groupID, userID int64) bool {
	_, ok := eng.session().recorded.Load(groupUserKey{groupID, userID})
	return ok
}

func (eng *Engine) recordSession(groupID, userID int64) {
	eng.session().recorded.Store(groupUserKey{groupID, userID}, struct{}{})
}

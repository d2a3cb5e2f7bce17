package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chatwash/chatwash/chatmod/userstore"
	"github.com/chatwash/chatwash/chatmod/wordstore"
)

// Evidence action and reason labels.
const (
	ActionAutoBan    = "auto-ban"
	ActionAutoDelete = "auto-delete"

	ReasonNickname = "nickname"
	ReasonWatch    = "watched"
	ReasonScore    = "score"
	ReasonCustom   = "group-custom"
)

// Audit labels emitted after a completed escalation branch.
const (
	AuditNicknameBan = "nickname-ban"
	AuditWatchBan    = "watch-ban"
	AuditScoreBan    = "score-ban"
	AuditWatchDelete = "watch-delete"
	AuditAutoDelete  = "auto-delete"
)

// TerminateUser applies the escalation policy to a classified message and
// reports whether it was handled. Every branch that mutates user state first
// captures evidence; a failed capture leaves all state untouched.
func (eng *Engine) TerminateUser(ctx context.Context, msg *Message, code string) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("escalation exception", "err", r, "group", msg.Chat.ID, "message", msg.ID)
			handled = false
		}
	}()

	if msg.From == nil || eng.isClassD(ctx, msg) {
		return false
	}
	gid := msg.Chat.ID
	uid := msg.From.ID
	mid := msg.ID

	if !spamCodes[code] {
		// benign-content categories are deletion-only: no scoring, no watch
		// transitions, no bans
		if eng.sessionRecorded(gid, uid) {
			eng.deleteMessage(ctx, gid, mid)
			eng.declareMessage(ctx, gid, mid)
			return true
		}
		ev := eng.captureEvidence(ctx, msg, ActionAutoDelete, ReasonCustom, code, "")
		if ev != nil {
			eng.recordSession(gid, uid)
			eng.deleteMessage(ctx, gid, mid)
			eng.declareMessage(ctx, gid, mid)
			eng.emitAudit(ctx, msg, AuditAutoDelete, ev)
		}
		return true
	}

	switch {
	case eng.Words.Match(ctx, wordstore.CategoryWb, msg.SenderName()):
		ev := eng.captureEvidence(ctx, msg, ActionAutoBan, ReasonNickname, code, "")
		if ev != nil {
			eng.banSequence(ctx, msg, AuditNicknameBan, ev)
		}

	case eng.isWatched(ctx, userstore.WatchBan, uid):
		ev := eng.captureEvidence(ctx, msg, ActionAutoBan, ReasonWatch, code, "")
		if ev != nil {
			eng.banSequence(ctx, msg, AuditWatchBan, ev)
		}

	case eng.highScore(ctx, uid) > 0:
		score := eng.highScore(ctx, uid)
		ev := eng.captureEvidence(ctx, msg, ActionAutoBan, ReasonScore, code, fmt.Sprintf("%.1f", score))
		if ev != nil {
			eng.banSequence(ctx, msg, AuditScoreBan, ev)
		}

	case eng.isWatched(ctx, userstore.WatchDelete, uid) && watchPromoteCodes[code]:
		ev := eng.captureEvidence(ctx, msg, ActionAutoDelete, ReasonWatch, code, "")
		if ev != nil {
			eng.addWatchBan(ctx, uid)
			eng.deleteMessage(ctx, gid, mid)
			eng.declareMessage(ctx, gid, mid)
			eng.requestAssist(ctx, "delete", gid, uid, "global")
			eng.markDetected(ctx, gid, uid)
			eng.emitAudit(ctx, msg, AuditWatchDelete, ev)
		}

	case eng.isDetectedUser(ctx, gid, uid) || eng.sessionRecorded(gid, uid) || code == CodeDetected:
		// repeat offender inside the window: delete silently, refresh the
		// detection timestamp, no fresh evidence
		eng.deleteMessage(ctx, gid, mid)
		if _, err := eng.Users.SetDetected(ctx, uid, gid, time.Now().Unix()); err != nil {
			eng.Logger.Warn("updating detection record failed", "user", uid, "err", err)
		}
		eng.declareMessage(ctx, gid, mid)

	default:
		ev := eng.captureEvidence(ctx, msg, ActionAutoDelete, ReasonCustom, code, "")
		if ev != nil {
			eng.recordSession(gid, uid)
			eng.deleteMessage(ctx, gid, mid)
			eng.declareMessage(ctx, gid, mid)
			eng.markDetected(ctx, gid, uid)
			eng.emitAudit(ctx, msg, AuditAutoDelete, ev)
		}
	}
	return true
}

// banSequence is the shared tail of all ban branches: permanently mark, ban in
// the background, delete and declare the message, ask peers for a ban, audit.
func (eng *Engine) banSequence(ctx context.Context, msg *Message, auditLabel string, ev *Evidence) {
	gid := msg.Chat.ID
	uid := msg.From.ID
	eng.addBadUser(ctx, uid)
	eng.banUser(ctx, gid, uid)
	eng.deleteMessage(ctx, gid, msg.ID)
	eng.declareMessage(ctx, gid, msg.ID)
	eng.requestAssist(ctx, "ban", gid, uid, "")
	eng.emitAudit(ctx, msg, auditLabel, ev)
}

// markDetected stamps the user's detection record and, on the first detection
// in the group, refreshes the score contribution and propagates it.
func (eng *Engine) markDetected(ctx context.Context, groupID, userID int64) {
	previous, err := eng.Users.SetDetected(ctx, userID, groupID, time.Now().Unix())
	if err != nil {
		eng.Logger.Warn("updating detection record failed", "user", userID, "err", err)
		return
	}
	if !previous {
		eng.updateScore(ctx, userID)
	}
}

// updateScore recomputes this engine's score contribution: 0.3 per group with
// a detection record, capped at the ban threshold.
func (eng *Engine) updateScore(ctx context.Context, userID int64) {
	n, err := eng.Users.DetectedGroupCount(ctx, userID)
	if err != nil {
		eng.Logger.Warn("detected group count failed", "user", userID, "err", err)
		return
	}
	score := 0.3 * float64(n)
	if score > 3.0 {
		score = 3.0
	}
	if err := eng.Users.SetScore(ctx, userID, scoreSource, score); err != nil {
		eng.Logger.Warn("updating score failed", "user", userID, "err", err)
		return
	}
	if err := eng.Exchange.PropagateScore(ctx, userID); err != nil {
		eng.Logger.Warn("propagating score failed", "user", userID, "err", err)
	}
	actionCount.WithLabelValues("score-update").Inc()
}

// addBadUser marks the user permanently bad and shares the fact with peers
// once.
func (eng *Engine) addBadUser(ctx context.Context, userID int64) {
	added, err := eng.Users.AddBad(ctx, userID)
	if err != nil {
		eng.Logger.Warn("adding bad user failed", "user", userID, "err", err)
		return
	}
	if !added {
		return
	}
	if err := eng.Exchange.ShareBadUser(ctx, userID); err != nil {
		eng.Logger.Warn("sharing bad user failed", "user", userID, "err", err)
	}
	actionCount.WithLabelValues("bad-user").Inc()
}

// addWatchBan places the user under a time-bounded ban watch and shares the
// expiry with peers, encrypted when a box is configured.
func (eng *Engine) addWatchBan(ctx context.Context, userID int64) {
	until := time.Now().Add(eng.watchBanDuration()).Unix()
	added, err := eng.Users.SetWatch(ctx, userstore.WatchBan, userID, until)
	if err != nil {
		eng.Logger.Warn("setting ban watch failed", "user", userID, "err", err)
		return
	}
	if !added {
		return
	}
	shared := strconv.FormatInt(until, 10)
	if eng.Crypt != nil {
		enc, err := eng.Crypt.Encrypt(shared)
		if err != nil {
			eng.Logger.Warn("encrypting watch expiry failed", "user", userID, "err", err)
			return
		}
		shared = enc
	}
	if err := eng.Exchange.ShareWatchBanUser(ctx, userID, shared); err != nil {
		eng.Logger.Warn("sharing ban watch failed", "user", userID, "err", err)
	}
	actionCount.WithLabelValues("watch-ban").Inc()
}

func (eng *Engine) isWatched(ctx context.Context, kind userstore.WatchKind, userID int64) bool {
	ok, err := eng.Users.IsWatched(ctx, kind, userID)
	if err != nil {
		eng.Logger.Warn("watch lookup failed", "user", userID, "kind", kind, "err", err)
		return false
	}
	return ok
}

// banUser removes the user in a fire-and-forget background task so a slow
// transport call never blocks message processing.
func (eng *Engine) banUser(ctx context.Context, groupID, userID int64) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := eng.Chat.BanMember(bg, groupID, userID); err != nil {
			eng.Logger.Warn("banning user failed", "group", groupID, "user", userID, "err", err)
			return
		}
		actionCount.WithLabelValues("ban").Inc()
	}()
}

// KickUser temporarily removes a user: ban, wait out the platform's
// eventual-consistency delay, then lift the ban. Blocking, by design of the
// platform contract.
func (eng *Engine) KickUser(ctx context.Context, groupID, userID int64) error {
	if err := eng.Chat.BanMember(ctx, groupID, userID); err != nil {
		return err
	}
	time.Sleep(eng.kickUnbanDelay())
	return eng.Chat.UnbanMember(ctx, groupID, userID)
}

func (eng *Engine) captureEvidence(ctx context.Context, msg *Message, action, reason, category, extra string) *Evidence {
	ev, err := eng.Exchange.CaptureEvidence(ctx, msg, action, reason, category, extra)
	if err != nil {
		eng.Logger.Warn("evidence capture failed", "group", msg.Chat.ID, "message", msg.ID, "err", err)
		return nil
	}
	return ev
}

func (eng *Engine) deleteMessage(ctx context.Context, groupID, messageID int64) {
	if err := eng.Chat.DeleteMessage(ctx, groupID, messageID); err != nil {
		eng.Logger.Warn("deleting message failed", "group", groupID, "message", messageID, "err", err)
		return
	}
	actionCount.WithLabelValues("delete").Inc()
}

func (eng *Engine) declareMessage(ctx context.Context, groupID, messageID int64) {
	eng.MarkDeclared(groupID, messageID)
	if err := eng.Exchange.DeclareMessage(ctx, groupID, messageID); err != nil {
		eng.Logger.Warn("declaring message failed", "group", groupID, "message", messageID, "err", err)
	}
}

func (eng *Engine) requestAssist(ctx context.Context, action string, groupID, userID int64, scope string) {
	if err := eng.Exchange.RequestAssist(ctx, action, groupID, userID, scope); err != nil {
		eng.Logger.Warn("peer assistance request failed", "action", action, "group", groupID, "user", userID, "err", err)
	}
}

func (eng *Engine) emitAudit(ctx context.Context, msg *Message, label string, ev *Evidence) {
	if eng.Notifier == nil {
		return
	}
	evt := &AuditEvent{
		Label:     label,
		GroupID:   msg.Chat.ID,
		MessageID: msg.ID,
		Evidence:  ev,
	}
	if msg.From != nil {
		evt.UserID = msg.From.ID
	}
	if err := eng.Notifier.SendAudit(ctx, evt); err != nil {
		eng.Logger.Warn("sending audit failed", "label", label, "err", err)
	}
}

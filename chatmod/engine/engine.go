package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chatwash/chatwash/chatmod/configstore"
	"github.com/chatwash/chatwash/chatmod/crypt"
	"github.com/chatwash/chatwash/chatmod/groupmeta"
	"github.com/chatwash/chatwash/chatmod/userstore"
	"github.com/chatwash/chatwash/chatmod/visual"
	"github.com/chatwash/chatwash/chatmod/wordstore"
)

// Classification codes. The spam codes drive escalation (Branch A); every
// other code is deletion-only (Branch B).
const (
	CodeContact         = "con"
	CodeLocation        = "loc"
	CodeVideoNote       = "vdn"
	CodeVoice           = "voi"
	CodeBotCommand      = "bmd"
	CodeAnimatedSticker = "ast"
	CodeAudio           = "aud"
	CodeDocument        = "doc"
	CodeGame            = "gam"
	CodeGIF             = "gif"
	CodeViaBot          = "via"
	CodeVideo           = "vid"
	CodeService         = "ser"
	CodeSticker         = "sti"

	CodeAffiliate  = "aff"
	CodeExecutable = "exe"
	CodeIMLink     = "iml"
	CodeShortLink  = "sho"
	CodeTGLink     = "tgl"
	CodeTGProxy    = "tgp"
	CodeQRCode     = "qrc"

	// CodeDetected signals that the sender is already being handled inside
	// the suppression window; no fresh classification is attached.
	CodeDetected = "true"
)

var spamCodes = map[string]bool{
	CodeAffiliate:  true,
	CodeExecutable: true,
	CodeIMLink:     true,
	CodeShortLink:  true,
	CodeTGLink:     true,
	CodeTGProxy:    true,
	CodeQRCode:     true,
	CodeDetected:   true,
}

// Delete-watched users are promoted to a ban watch only for these codes.
var watchPromoteCodes = map[string]bool{
	CodeAffiliate:  true,
	CodeExecutable: true,
	CodeIMLink:     true,
	CodeQRCode:     true,
	CodeTGProxy:    true,
}

const scoreSource = "clean"

// runtime for classifying group messages and driving the escalation policy.
//
// All exported fields should be set before first use; QR, Crypt, Commands, and
// Notifier are optional.
type Engine struct {
	Logger   *slog.Logger
	Words    *wordstore.Store
	Users    userstore.UserStore
	Configs  configstore.ConfigStore
	Chat     ChatClient
	Exchange Exchange
	Notifier Notifier
	Meta     *groupmeta.Cache
	QR       visual.QRDecoder
	Crypt    *crypt.Box
	Commands CommandClassifier
	Persist  wordstore.Persister

	// SelfID is the engine's own account id; NospamID is the cooperating
	// moderator account whose admin presence relaxes QR self-ban handling.
	SelfID   int64
	NospamID int64

	// DetectionWindow suppresses re-classification of a user after a
	// detection. WatchBanDuration bounds the promoted ban watch.
	// KickUnbanDelay is the platform-required pause inside KickUser.
	DetectionWindow  time.Duration
	WatchBanDuration time.Duration
	KickUnbanDelay   time.Duration

	sessOnce sync.Once
	sess     *sessionState
}

type groupUserKey struct {
	GroupID int64
	ID      int64
}

// In-memory per-process state; intentionally not persisted.
type sessionState struct {
	// detected content fingerprint -> classification code
	contents *xsync.MapOf[string, string]
	// users already handled with evidence in a group this session
	recorded *xsync.MapOf[groupUserKey, struct{}]
	// messages declared handled, by this bot or by peers
	declared *xsync.MapOf[groupUserKey, struct{}]
	// sticker/animation messages queued for delayed deletion
	sweeps *xsync.MapOf[groupUserKey, int64]
}

func (eng *Engine) session() *sessionState {
	eng.sessOnce.Do(func() {
		eng.sess = &sessionState{
			contents: xsync.NewMapOf[string, string](),
			recorded: xsync.NewMapOf[groupUserKey, struct{}](),
			declared: xsync.NewMapOf[groupUserKey, struct{}](),
			sweeps:   xsync.NewMapOf[groupUserKey, int64](),
		}
	})
	return eng.sess
}

func (eng *Engine) persister() wordstore.Persister {
	if eng.Persist == nil {
		return wordstore.NoopPersister{}
	}
	return eng.Persist
}

func (eng *Engine) detectionWindow() time.Duration {
	if eng.DetectionWindow == 0 {
		return 10 * time.Minute
	}
	return eng.DetectionWindow
}

func (eng *Engine) watchBanDuration() time.Duration {
	if eng.WatchBanDuration == 0 {
		return 24 * time.Hour
	}
	return eng.WatchBanDuration
}

func (eng *Engine) kickUnbanDelay() time.Duration {
	if eng.KickUnbanDelay == 0 {
		return 3 * time.Second
	}
	return eng.KickUnbanDelay
}

// ProcessMessage classifies one inbound message and, when it violates the
// group's rules, runs the escalation policy. Rule evaluation faults are
// contained here; the worst outcome of any internal error is a message that
// goes unflagged.
func (eng *Engine) ProcessMessage(ctx context.Context, msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("message processing exception", "err", r, "group", msg.Chat.ID, "message", msg.ID)
			eventErrorCount.WithLabelValues("message").Inc()
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()

	code := eng.Classify(ctx, msg)
	eventProcessCount.WithLabelValues("message").Inc()
	if code == "" {
		return nil
	}

	// remember the content so identical re-posts classify without re-running
	// pattern checks
	if fp := msg.Fingerprint(); fp != "" && code != CodeDetected {
		eng.session().contents.Store(fp, code)
	}

	handled := eng.TerminateUser(ctx, msg, code)
	logger := eng.Logger.With("group", msg.Chat.ID, "message", msg.ID, "code", code, "handled", handled)
	if msg.From != nil {
		logger = logger.With("user", msg.From.ID)
	}
	logger.Info("message violation processed")
	return nil
}

// MarkDeclared records that a cooperating bot already handled the message.
func (eng *Engine) MarkDeclared(groupID, messageID int64) {
	eng.session().declared.Store(groupUserKey{groupID, messageID}, struct{}{})
}

func (eng *Engine) isDeclared(groupID, messageID int64) bool {
	_, ok := eng.session().declared.Load(groupUserKey{groupID, messageID})
	return ok
}

// ScheduleSweep queues a sticker or animation message for delayed deletion by
// the periodic sweeper.
func (eng *Engine) ScheduleSweep(groupID, messageID int64) {
	eng.session().sweeps.Store(groupUserKey{groupID, messageID}, time.Now().Unix())
	eng.persister().Persist("message_ids")
}

// SweepDue deletes queued sticker messages older than maxAge and returns how
// many were swept.
func (eng *Engine) SweepDue(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge).Unix()
	swept := 0
	eng.session().sweeps.Range(func(key groupUserKey, ts int64) bool {
		if ts > cutoff {
			return true
		}
		eng.session().sweeps.Delete(key)
		if err := eng.Chat.DeleteMessage(ctx, key.GroupID, key.ID); err != nil {
			eng.Logger.Warn("sweeping queued message failed", "group", key.GroupID, "message", key.ID, "err", err)
			return true
		}
		swept++
		return true
	})
	if swept > 0 {
		eng.persister().Persist("message_ids")
	}
	return swept
}

func (eng *Engine) groupConfig(ctx context.Context, groupID int64) configstore.GroupConfig {
	cfg, err := eng.Configs.Config(ctx, groupID)
	if err != nil {
		eng.Logger.Warn("group config lookup failed", "group", groupID, "err", err)
		return nil
	}
	return cfg
}

package engine

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/chatwash/chatwash/chatmod/wordstore"
)

var commandStart = regexp.MustCompile(`(?i)^/[a-z]|^/$`)

var executableExtensions = []string{"apk", "bat", "cmd", "com", "exe", "msi", "pif", "scr", "vbs"}

// Classify evaluates a message against the group's configuration and returns
// at most one category code; the check order is fixed and the first hit wins.
// Empty means no violation. CodeDetected means the sender is already being
// handled. Internal faults never escape: a failed check simply does not match.
func (eng *Engine) Classify(ctx context.Context, msg *Message) (code string) {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("classification exception", "err", r, "group", msg.Chat.ID, "message", msg.ID)
			code = ""
		}
	}()

	gid := msg.Chat.ID
	content := msg.ContentKey()

	// bypass: content echoed in the group's own metadata is never a violation
	if content != "" {
		if desc := eng.Meta.Description(ctx, gid); desc != "" && strings.Contains(desc, content) {
			return ""
		}
		if pinned := eng.Meta.PinnedText(ctx, gid); pinned != "" && strings.Contains(pinned, content) {
			return ""
		}
	}
	if msg.Sticker != nil && msg.Sticker.SetName != "" {
		if msg.Sticker.SetName == eng.Meta.StickerSet(ctx, gid) {
			return ""
		}
	}

	classC := eng.isClassC(ctx, msg)

	// detection records
	if !classC {
		if msg.From != nil && eng.isDetectedUser(ctx, gid, msg.From.ID) {
			return CodeDetected
		}
		// the content table applies even to senderless posts
		if fp := msg.Fingerprint(); fp != "" {
			if prior, ok := eng.session().contents.Load(fp); ok && eng.groupConfig(ctx, gid).Enabled(prior) {
				return prior
			}
		}
	}

	cfg := eng.groupConfig(ctx, gid)

	// privacy message kinds, checked regardless of sender class
	if cfg.Enabled(CodeContact) && msg.Contact {
		return CodeContact
	}
	if cfg.Enabled(CodeLocation) && (msg.Location || msg.Venue) {
		return CodeLocation
	}
	if cfg.Enabled(CodeVideoNote) && msg.VideoNote {
		return CodeVideoNote
	}
	if cfg.Enabled(CodeVoice) && msg.Voice {
		return CodeVoice
	}

	if cfg.Enabled(CodeBotCommand) && eng.isBotCommand(ctx, msg) {
		return CodeBotCommand
	}

	// basic content kinds
	if !classC {
		if cfg.Enabled(CodeAnimatedSticker) && msg.Sticker != nil && msg.Sticker.IsAnimated {
			return CodeAnimatedSticker
		}
		if cfg.Enabled(CodeAudio) && msg.Audio {
			return CodeAudio
		}
		if cfg.Enabled(CodeDocument) && msg.Document != nil {
			return CodeDocument
		}
		if cfg.Enabled(CodeGame) && msg.Game != nil {
			return CodeGame
		}
		if cfg.Enabled(CodeGIF) && msg.IsGIF() {
			return CodeGIF
		}
		if cfg.Enabled(CodeViaBot) && msg.ViaBot {
			return CodeViaBot
		}
		if cfg.Enabled(CodeVideo) && msg.Video {
			return CodeVideo
		}
		if cfg.Enabled(CodeService) && msg.Service {
			return CodeService
		}
		// sticker is the catch-all kind: enabling it blocks whatever reached
		// this point
		if cfg.Enabled(CodeSticker) {
			return CodeSticker
		}
	}

	// spam patterns
	if !classC && !eng.isClassE(ctx, msg) {
		text := msg.PlainText()

		if cfg.Enabled(CodeAffiliate) && eng.Words.Match(ctx, wordstore.CategoryAff, text) {
			return CodeAffiliate
		}
		if cfg.Enabled(CodeExecutable) && eng.isExecutable(msg) {
			return CodeExecutable
		}
		if cfg.Enabled(CodeIMLink) && eng.Words.Match(ctx, wordstore.CategoryIml, text) {
			return CodeIMLink
		}
		if cfg.Enabled(CodeShortLink) && eng.Words.Match(ctx, wordstore.CategorySho, text) {
			return CodeShortLink
		}
		if cfg.Enabled(CodeTGLink) && eng.isTelegramLink(ctx, msg) {
			return CodeTGLink
		}
		if cfg.Enabled(CodeTGProxy) && eng.Words.Match(ctx, wordstore.CategoryTgp, text) {
			return CodeTGProxy
		}
		if cfg.Enabled(CodeQRCode) && eng.hasQRCode(ctx, msg) {
			return CodeQRCode
		}
	}

	// stickers and animations that survived all checks get queued for the
	// delayed sweeper instead of counting as violations
	if msg.Sticker != nil || msg.Animation || msg.IsGIF() {
		eng.ScheduleSweep(gid, msg.ID)
	}
	return ""
}

// ClassifyText is preview mode for to-be-broadcast text: only the link-pattern
// checks apply, without sender or membership context.
func (eng *Engine) ClassifyText(ctx context.Context, groupID int64, text string) string {
	cfg := eng.groupConfig(ctx, groupID)
	if text == "" {
		return ""
	}
	for _, check := range []struct {
		code     string
		category string
	}{
		{CodeAffiliate, wordstore.CategoryAff},
		{CodeIMLink, wordstore.CategoryIml},
		{CodeShortLink, wordstore.CategorySho},
		{CodeTGLink, wordstore.CategoryTgl},
		{CodeTGProxy, wordstore.CategoryTgp},
	} {
		if cfg.Enabled(check.code) && eng.Words.Match(ctx, check.category, text) {
			return check.code
		}
	}
	return ""
}

// ClassifyImage is preview mode for a local image: QR detection only. The
// image file is removed before returning, success or not.
func (eng *Engine) ClassifyImage(ctx context.Context, groupID int64, imagePath string) string {
	defer eng.removeLocalFile(imagePath)

	qr := eng.decodeQR(ctx, imagePath)
	if qr == "" {
		return ""
	}
	if eng.nospamModerated(ctx, groupID) && eng.Words.MatchBanText(ctx, qr) {
		return ""
	}
	return CodeQRCode
}

// hasQRCode downloads the message's photo and scans it. A decoded ban-list
// payload is suppressed while the cooperating moderator bot holds admin
// rights, so that bot's own evidence does not trigger a self-ban loop.
func (eng *Engine) hasQRCode(ctx context.Context, msg *Message) bool {
	if msg.Photo == nil || !msg.Photo.Big {
		return false
	}
	if eng.isDeclared(msg.Chat.ID, msg.ID) {
		return false
	}
	path, err := eng.Chat.DownloadImage(ctx, msg)
	if err != nil {
		eng.Logger.Warn("image download failed", "group", msg.Chat.ID, "message", msg.ID, "err", err)
		return false
	}
	if path == "" {
		return false
	}
	defer eng.removeLocalFile(path)

	qr := eng.decodeQR(ctx, path)
	if qr == "" {
		return false
	}
	if eng.nospamModerated(ctx, msg.Chat.ID) && eng.Words.MatchBanText(ctx, qr) {
		return false
	}
	return true
}

func (eng *Engine) decodeQR(ctx context.Context, path string) string {
	if eng.QR == nil {
		return ""
	}
	qr, err := eng.QR.Decode(ctx, path)
	if err != nil {
		eng.Logger.Warn("QR decode failed", "path", path, "err", err)
		return ""
	}
	return qr
}

func (eng *Engine) nospamModerated(ctx context.Context, groupID int64) bool {
	if eng.NospamID == 0 {
		return false
	}
	ok, err := eng.Configs.IsGroupAdmin(ctx, groupID, eng.NospamID)
	return err == nil && ok
}

func (eng *Engine) removeLocalFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		eng.Logger.Warn("removing temporary file failed", "path", path, "err", err)
	}
}

// isBotCommand flags text that resembles a command invocation, unless the
// command is exempted or a structured classifier claims it.
func (eng *Engine) isBotCommand(ctx context.Context, msg *Message) bool {
	text := msg.PlainText()
	if !commandStart.MatchString(text) {
		return false
	}
	first := strings.SplitN(text, " ", 2)[0]
	if strings.Contains(first[1:], "/") {
		return false
	}
	// the exemption covers only a bare invocation, never one carrying
	// arguments
	if strings.TrimSpace(text) == first {
		if ok, err := eng.Configs.IsExemptCommand(ctx, strings.TrimPrefix(first, "/")); err == nil && ok {
			return false
		}
	}
	if eng.Commands != nil && eng.Commands.CommandType(msg) != "" {
		return false
	}
	return true
}

// isExecutable checks attached documents by filename extension and MIME type,
// and message links by extension (minus ".com", which is a TLD in links).
func (eng *Engine) isExecutable(msg *Message) bool {
	if msg.Document != nil {
		if name := strings.ToLower(msg.Document.FileName); name != "" {
			for _, ext := range executableExtensions {
				if strings.HasSuffix(name, "."+ext) {
					return true
				}
			}
		}
		if mime := msg.Document.MimeType; mime != "" {
			if strings.Contains(mime, "application/x-ms") || strings.Contains(mime, "executable") {
				return true
			}
		}
	}
	for _, link := range msg.AllLinks() {
		link = strings.ToLower(link)
		for _, ext := range executableExtensions {
			if ext == "com" {
				continue
			}
			if strings.HasSuffix(link, "."+ext) {
				return true
			}
		}
	}
	return false
}

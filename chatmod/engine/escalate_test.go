package engine

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatwash/chatwash/chatmod/crypt"
	"github.com/chatwash/chatwash/chatmod/userstore"
	"github.com/chatwash/chatwash/chatmod/wordstore"
)

func TestTerminateFirstTimeSpamOffender(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	msg := textMessage(1, 7, 10, "deal ref=5")

	assert.True(f.Engine.TerminateUser(ctx, msg, CodeAffiliate))

	assert.Equal(1, f.Exchange.CaptureCount())
	assert.Equal(CaptureCall{ActionAutoDelete, ReasonCustom, CodeAffiliate, ""}, f.Exchange.Captures[0])
	assert.Equal(1, f.Chat.DeletedCount())
	assert.Contains(f.Exchange.Declared, groupUserKey{1, 10})

	// detection timestamp set, score contributed once
	last, err := f.Users.LastDetected(ctx, 7, 1)
	assert.NoError(err)
	assert.NotZero(last)
	score, err := f.Users.TotalScore(ctx, 7)
	assert.NoError(err)
	assert.InDelta(0.3, score, 0.0001)
	assert.Equal([]int64{7}, f.Exchange.ScoreShared)
}

func TestTerminateRepeatOffenderSilentDelete(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()

	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "deal ref=5"), CodeAffiliate))
	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 11, "deal ref=5"), CodeAffiliate))

	// second offense: deleted, but no fresh evidence and no score change
	assert.Equal(1, f.Exchange.CaptureCount())
	assert.Equal(2, f.Chat.DeletedCount())
	score, err := f.Users.TotalScore(ctx, 7)
	assert.NoError(err)
	assert.InDelta(0.3, score, 0.0001)
}

func TestTerminateAlreadyHandledSignal(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "x"), CodeDetected))

	assert.Equal(0, f.Exchange.CaptureCount())
	assert.Equal(1, f.Chat.DeletedCount())
	assert.Contains(f.Exchange.Declared, groupUserKey{1, 10})
}

func TestTerminateFailedCaptureLeavesStateUntouched(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	f.Exchange.FailCapture = true

	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "deal ref=5"), CodeAffiliate))

	assert.Equal(0, f.Chat.DeletedCount())
	assert.Empty(f.Exchange.Declared)
	last, err := f.Users.LastDetected(ctx, 7, 1)
	assert.NoError(err)
	assert.Zero(last)
	score, err := f.Users.TotalScore(ctx, 7)
	assert.NoError(err)
	assert.Zero(score)
	assert.False(f.Engine.sessionRecorded(1, 7))
}

func TestTerminateNicknameBan(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	assert.NoError(f.Words.Category(wordstore.CategoryWb).AddPattern(`crypto king`, 0))

	msg := textMessage(1, 7, 10, "hello")
	msg.From.FirstName = "Crypto"
	msg.From.LastName = "King"

	assert.True(f.Engine.TerminateUser(ctx, msg, CodeShortLink))

	assert.Equal(CaptureCall{ActionAutoBan, ReasonNickname, CodeShortLink, ""}, f.Exchange.Captures[0])
	bad, err := f.Users.IsBad(ctx, 7)
	assert.NoError(err)
	assert.True(bad)
	assert.Equal([]int64{7}, f.Exchange.BadShared)
	assert.Contains(f.Exchange.Assists, AssistCall{"ban", 1, 7, ""})
	assert.Equal(1, f.Chat.DeletedCount())
	// ban runs in the background
	assert.Eventually(func() bool { return f.Chat.BannedCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTerminateWatchBanUser(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	_, err := f.Users.SetWatch(ctx, userstore.WatchBan, 7, time.Now().Add(time.Hour).Unix())
	assert.NoError(err)

	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "spam"), CodeIMLink))

	assert.Equal(CaptureCall{ActionAutoBan, ReasonWatch, CodeIMLink, ""}, f.Exchange.Captures[0])
	bad, err := f.Users.IsBad(ctx, 7)
	assert.NoError(err)
	assert.True(bad)
	assert.Eventually(func() bool { return f.Chat.BannedCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTerminateHighScoreBan(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	assert.NoError(f.Users.SetScore(ctx, 7, "clean", 1.5))
	assert.NoError(f.Users.SetScore(ctx, 7, "nospam", 1.6))

	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "spam"), CodeTGLink))

	assert.Equal(CaptureCall{ActionAutoBan, ReasonScore, CodeTGLink, "3.1"}, f.Exchange.Captures[0])
	bad, err := f.Users.IsBad(ctx, 7)
	assert.NoError(err)
	assert.True(bad)
}

func TestTerminateDeleteWatchPromotion(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	box, err := crypt.NewBox("secret")
	assert.NoError(err)
	f.Engine.Crypt = box

	_, err = f.Users.SetWatch(ctx, userstore.WatchDelete, 7, time.Now().Add(time.Hour).Unix())
	assert.NoError(err)

	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "spam"), CodeQRCode))

	assert.Equal(CaptureCall{ActionAutoDelete, ReasonWatch, CodeQRCode, ""}, f.Exchange.Captures[0])

	// promoted to a ban watch, with the expiry shared encrypted
	watched, err := f.Users.IsWatched(ctx, userstore.WatchBan, 7)
	assert.NoError(err)
	assert.True(watched)
	blob, ok := f.Exchange.WatchShared[7]
	assert.True(ok)
	plain, err := box.Decrypt(blob)
	assert.NoError(err)
	until, err := f.Users.WatchExpiry(ctx, userstore.WatchBan, 7)
	assert.NoError(err)
	assert.Equal(strconv.FormatInt(until, 10), plain)

	assert.Contains(f.Exchange.Assists, AssistCall{"delete", 1, 7, "global"})
	// no ban for a delete-watch promotion
	assert.Equal(0, f.Chat.BannedCount())
	// score contributed on first detection
	score, err := f.Users.TotalScore(ctx, 7)
	assert.NoError(err)
	assert.InDelta(0.3, score, 0.0001)
}

func TestTerminateDeleteWatchRestrictedSubset(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	_, err := f.Users.SetWatch(ctx, userstore.WatchDelete, 7, time.Now().Add(time.Hour).Unix())
	assert.NoError(err)

	// short links are not in the promotion subset: falls through to the
	// first-time branch
	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "bit.ly/x"), CodeShortLink))

	watched, err := f.Users.IsWatched(ctx, userstore.WatchBan, 7)
	assert.NoError(err)
	assert.False(watched)
	assert.Equal(CaptureCall{ActionAutoDelete, ReasonCustom, CodeShortLink, ""}, f.Exchange.Captures[0])
}

func TestTerminateBenignContentDeleteOnly(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()

	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, ""), CodeSticker))
	assert.Equal(1, f.Exchange.CaptureCount())
	assert.Equal(1, f.Chat.DeletedCount())

	// second occurrence: silent delete
	assert.True(f.Engine.TerminateUser(ctx, textMessage(1, 7, 11, ""), CodeSticker))
	assert.Equal(1, f.Exchange.CaptureCount())
	assert.Equal(2, f.Chat.DeletedCount())

	// no scoring, no watch, no ban for benign kinds
	score, err := f.Users.TotalScore(ctx, 7)
	assert.NoError(err)
	assert.Zero(score)
	last, err := f.Users.LastDetected(ctx, 7, 1)
	assert.NoError(err)
	assert.Zero(last)
	assert.Equal(0, f.Chat.BannedCount())
}

func TestTerminateSkipsClassD(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	_, err := f.Users.AddBad(ctx, 7)
	assert.NoError(err)

	assert.False(f.Engine.TerminateUser(ctx, textMessage(1, 7, 10, "spam"), CodeAffiliate))
	assert.Equal(0, f.Exchange.CaptureCount())
	assert.Equal(0, f.Chat.DeletedCount())

	// messages with no sender are skipped too
	msg := &Message{ID: 11, Chat: Chat{ID: 1}, Text: "spam"}
	assert.False(f.Engine.TerminateUser(ctx, msg, CodeAffiliate))
}

func TestKickUserWaitsBetweenCalls(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	assert.NoError(f.Engine.KickUser(ctx, 1, 7))
	assert.Equal(1, f.Chat.BannedCount())
	assert.Equal([]groupUserKey{{1, 7}}, f.Chat.Unbanned)
}

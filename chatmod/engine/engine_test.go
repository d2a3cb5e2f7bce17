package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatwash/chatwash/chatmod/wordstore"
)

func TestProcessMessageEndToEnd(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	assert.NoError(f.Words.Category(wordstore.CategoryAff).AddPattern(`ref=\d+`, 0))
	enableAll(f, 1, CodeAffiliate)

	assert.NoError(f.Engine.ProcessMessage(ctx, textMessage(1, 7, 10, "deal ref=5")))

	assert.Equal(1, f.Exchange.CaptureCount())
	assert.Equal(1, f.Chat.DeletedCount())
	last, err := f.Users.LastDetected(ctx, 7, 1)
	assert.NoError(err)
	assert.NotZero(last)

	// a clean message from another user leaves everything alone
	assert.NoError(f.Engine.ProcessMessage(ctx, textMessage(1, 8, 11, "good afternoon")))
	assert.Equal(1, f.Exchange.CaptureCount())
	assert.Equal(1, f.Chat.DeletedCount())
}

func TestProcessMessageDetectionFollowUp(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	assert.NoError(f.Words.Category(wordstore.CategoryAff).AddPattern(`ref=\d+`, 0))
	enableAll(f, 1, CodeAffiliate)

	assert.NoError(f.Engine.ProcessMessage(ctx, textMessage(1, 7, 10, "deal ref=5")))
	// inside the window even an innocuous follow-up is swept, silently
	assert.NoError(f.Engine.ProcessMessage(ctx, textMessage(1, 7, 11, "hello again")))

	assert.Equal(1, f.Exchange.CaptureCount())
	assert.Equal(2, f.Chat.DeletedCount())
}

func TestProcessMessagePanicContained(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	f.Engine.Words = nil // force a fault inside the pattern checks
	enableAll(f, 1, CodeAffiliate)

	msg := textMessage(1, 7, 10, "anything")
	assert.NotPanics(func() {
		assert.NoError(f.Engine.ProcessMessage(ctx, msg))
	})
}

func TestMarkDeclaredSuppress(t *testing.T) {
	assert := assert.New(t)

	f := EngineTestFixture()
	assert.False(f.Engine.isDeclared(1, 10))
	f.Engine.MarkDeclared(1, 10)
	assert.True(f.Engine.isDeclared(1, 10))
	assert.False(f.Engine.isDeclared(2, 10))
}

func TestSweepPersistence(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p := &recordingPersister{}
	f := EngineTestFixture()
	f.Engine.Persist = p

	f.Engine.ScheduleSweep(1, 10)
	f.Engine.ScheduleSweep(1, 11)
	assert.Equal(2, p.count("message_ids"))

	assert.Equal(2, f.Engine.SweepDue(ctx, 0))
	assert.Equal(3, p.count("message_ids"))
	assert.Equal(2, f.Chat.DeletedCount())

	// nothing left to sweep
	assert.Equal(0, f.Engine.SweepDue(ctx, 0))
	assert.Equal(3, p.count("message_ids"))
}

func TestSweepHonorsMaxAge(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := EngineTestFixture()
	f.Engine.ScheduleSweep(1, 10)
	assert.Equal(0, f.Engine.SweepDue(ctx, time.Hour))
	assert.Equal(1, f.Engine.SweepDue(ctx, 0))
}

type recordingPersister struct {
	names []string
}

func (p *recordingPersister) Persist(name string) {
	p.names = append(p.names, name)
}

func (p *recordingPersister) count(name string) int {
	n := 0
	for _, v := range p.names {
		if v == name {
			n++
		}
	}
	return n
}

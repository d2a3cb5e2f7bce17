package userstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectedLifecycle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemUserStore()

	ts, err := s.LastDetected(ctx, 100, 1)
	assert.NoError(err)
	assert.Equal(int64(0), ts)

	now := time.Now().Unix()
	previous, err := s.SetDetected(ctx, 100, 1, now)
	assert.NoError(err)
	assert.False(previous)

	previous, err = s.SetDetected(ctx, 100, 1, now+5)
	assert.NoError(err)
	assert.True(previous)

	ts, err = s.LastDetected(ctx, 100, 1)
	assert.NoError(err)
	assert.Equal(now+5, ts)

	_, err = s.SetDetected(ctx, 100, 2, now)
	assert.NoError(err)
	n, err := s.DetectedGroupCount(ctx, 100)
	assert.NoError(err)
	assert.Equal(2, n)
}

func TestScoreSum(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemUserStore()

	total, err := s.TotalScore(ctx, 200)
	assert.NoError(err)
	assert.Equal(0.0, total)

	assert.NoError(s.SetScore(ctx, 200, "clean", 0.9))
	assert.NoError(s.SetScore(ctx, 200, "nospam", 1.2))
	assert.NoError(s.SetScore(ctx, 200, "clean", 1.8))

	total, err = s.TotalScore(ctx, 200)
	assert.NoError(err)
	assert.InDelta(3.0, total, 0.0001)
}

func TestBadUsersAppendOnly(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemUserStore()

	bad, err := s.IsBad(ctx, 300)
	assert.NoError(err)
	assert.False(bad)

	added, err := s.AddBad(ctx, 300)
	assert.NoError(err)
	assert.True(added)

	added, err = s.AddBad(ctx, 300)
	assert.NoError(err)
	assert.False(added)

	bad, err = s.IsBad(ctx, 300)
	assert.NoError(err)
	assert.True(bad)
}

func TestWatchTTLBoundary(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemUserStore()

	watched, err := s.IsWatched(ctx, WatchBan, 400)
	assert.NoError(err)
	assert.False(watched)

	now := time.Now().Unix()

	// future expiry: watched
	_, err = s.SetWatch(ctx, WatchBan, 400, now+3600)
	assert.NoError(err)
	watched, err = s.IsWatched(ctx, WatchBan, 400)
	assert.NoError(err)
	assert.True(watched)

	// expiry exactly now: not watched (strict comparison)
	_, err = s.SetWatch(ctx, WatchDelete, 400, now)
	assert.NoError(err)
	watched, err = s.IsWatched(ctx, WatchDelete, 400)
	assert.NoError(err)
	assert.False(watched)

	until, err := s.WatchExpiry(ctx, WatchBan, 400)
	assert.NoError(err)
	assert.Equal(now+3600, until)
}

func TestSetWatchReportsNewlyAdded(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemUserStore()

	now := time.Now().Unix()
	added, err := s.SetWatch(ctx, WatchBan, 500, now+100)
	assert.NoError(err)
	assert.True(added)

	added, err = s.SetWatch(ctx, WatchBan, 500, now+200)
	assert.NoError(err)
	assert.False(added)

	// an expired watch counts as absent
	_, err = s.SetWatch(ctx, WatchDelete, 500, now-100)
	assert.NoError(err)
	added, err = s.SetWatch(ctx, WatchDelete, 500, now+100)
	assert.NoError(err)
	assert.True(added)
}

package groupmeta

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingFetcher struct {
	calls int
	fail  bool
}

func (f *countingFetcher) GetGroupDescription(ctx context.Context, groupID int64) (string, error) {
	f.calls++
	if f.fail {
		return "", fmt.Errorf("upstream down")
	}
	return "rules: no spam", nil
}

func (f *countingFetcher) GetPinnedMessageText(ctx context.Context, groupID int64) (string, error) {
	f.calls++
	return "pinned text", nil
}

func (f *countingFetcher) GetGroupStickerSetName(ctx context.Context, groupID int64) (string, error) {
	f.calls++
	return "houseset", nil
}

func TestCacheReadThrough(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := &countingFetcher{}
	c := NewCache(nil, f, 100, time.Minute)

	assert.Equal("rules: no spam", c.Description(ctx, 1))
	assert.Equal("rules: no spam", c.Description(ctx, 1))
	assert.Equal(1, f.calls)

	assert.Equal("pinned text", c.PinnedText(ctx, 1))
	assert.Equal("houseset", c.StickerSet(ctx, 1))
	assert.Equal(3, f.calls)

	c.Purge(1)
	assert.Equal("rules: no spam", c.Description(ctx, 1))
	assert.Equal(4, f.calls)
}

func TestCacheFetchFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	f := &countingFetcher{fail: true}
	c := NewCache(nil, f, 100, time.Minute)

	// failures are not cached, and read as empty
	assert.Equal("", c.Description(ctx, 2))
	assert.Equal("", c.Description(ctx, 2))
	assert.Equal(2, f.calls)
}

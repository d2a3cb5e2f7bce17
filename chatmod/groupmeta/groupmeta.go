// Read-through cache for group metadata used by classification bypass checks.
// Description, pinned message text, and the designated sticker set are fetched
// rarely but consulted on every message; lookups that fail upstream behave as
// empty values so a transport hiccup never blocks classification.
package groupmeta

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// The subset of the chat transport needed to fetch group metadata.
type Fetcher interface {
	GetGroupDescription(ctx context.Context, groupID int64) (string, error)
	GetPinnedMessageText(ctx context.Context, groupID int64) (string, error)
	GetGroupStickerSetName(ctx context.Context, groupID int64) (string, error)
}

type Cache struct {
	Logger  *slog.Logger
	Fetcher Fetcher

	data *expirable.LRU[string, string]
}

func NewCache(logger *slog.Logger, fetcher Fetcher, capacity int, ttl time.Duration) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		Logger:  logger,
		Fetcher: fetcher,
		data:    expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (c *Cache) lookup(ctx context.Context, kind string, groupID int64, fetch func(context.Context, int64) (string, error)) string {
	key := fmt.Sprintf("%s/%d", kind, groupID)
	if v, ok := c.data.Get(key); ok {
		return v
	}
	v, err := fetch(ctx, groupID)
	if err != nil {
		c.Logger.Warn("group metadata fetch failed", "kind", kind, "group", groupID, "err", err)
		return ""
	}
	c.data.Add(key, v)
	return v
}

func (c *Cache) Description(ctx context.Context, groupID int64) string {
	return c.lookup(ctx, "description", groupID, c.Fetcher.GetGroupDescription)
}

func (c *Cache) PinnedText(ctx context.Context, groupID int64) string {
	return c.lookup(ctx, "pinned", groupID, c.Fetcher.GetPinnedMessageText)
}

func (c *Cache) StickerSet(ctx context.Context, groupID int64) string {
	return c.lookup(ctx, "sticker", groupID, c.Fetcher.GetGroupStickerSetName)
}

// Purge drops all cached entries for a group, eg after its settings change.
func (c *Cache) Purge(groupID int64) {
	for _, kind := range []string{"description", "pinned", "sticker"} {
		c.data.Remove(fmt.Sprintf("%s/%d", kind, groupID))
	}
}

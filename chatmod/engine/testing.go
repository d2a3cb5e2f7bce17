package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chatwash/chatwash/chatmod/configstore"
	"github.com/chatwash/chatwash/chatmod/groupmeta"
	"github.com/chatwash/chatwash/chatmod/userstore"
	"github.com/chatwash/chatwash/chatmod/wordstore"
)

type ResolvedPeer struct {
	Kind string
	ID   int64
}

// MockChatClient is an in-memory transport for tests and local development.
type MockChatClient struct {
	mu sync.Mutex

	Description string
	PinnedText  string
	StickerSet  string

	Usernames map[string]ResolvedPeer
	Members   map[groupUserKey]string

	ImagePath string

	Deleted  []groupUserKey
	Banned   []groupUserKey
	Unbanned []groupUserKey
}

func (c *MockChatClient) GetGroupDescription(ctx context.Context, groupID int64) (string, error) {
	return c.Description, nil
}

func (c *MockChatClient) GetPinnedMessageText(ctx context.Context, groupID int64) (string, error) {
	return c.PinnedText, nil
}

func (c *MockChatClient) GetGroupStickerSetName(ctx context.Context, groupID int64) (string, error) {
	return c.StickerSet, nil
}

func (c *MockChatClient) ResolveUsername(ctx context.Context, username string) (string, int64, error) {
	peer, ok := c.Usernames[username]
	if !ok {
		return "", 0, nil
	}
	return peer.Kind, peer.ID, nil
}

func (c *MockChatClient) GetChatMember(ctx context.Context, groupID, userID int64) (*ChatMember, bool, error) {
	status, ok := c.Members[groupUserKey{groupID, userID}]
	if !ok {
		return nil, false, nil
	}
	return &ChatMember{Status: status}, true, nil
}

func (c *MockChatClient) DeleteMessage(ctx context.Context, groupID, messageID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = append(c.Deleted, groupUserKey{groupID, messageID})
	return nil
}

func (c *MockChatClient) BanMember(ctx context.Context, groupID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Banned = append(c.Banned, groupUserKey{groupID, userID})
	return nil
}

func (c *MockChatClient) UnbanMember(ctx context.Context, groupID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Unbanned = append(c.Unbanned, groupUserKey{groupID, userID})
	return nil
}

func (c *MockChatClient) DownloadImage(ctx context.Context, msg *Message) (string, error) {
	return c.ImagePath, nil
}

func (c *MockChatClient) DeletedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Deleted)
}

func (c *MockChatClient) BannedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Banned)
}

type CaptureCall struct {
	Action   string
	Reason   string
	Category string
	Extra    string
}

type AssistCall struct {
	Action  string
	GroupID int64
	UserID  int64
	Scope   string
}

// MockExchange records peer-coordination calls; set FailCapture to exercise
// the at-most-one-side-effect policy.
type MockExchange struct {
	mu sync.Mutex

	FailCapture bool

	Captures    []CaptureCall
	Declared    []groupUserKey
	Assists     []AssistCall
	BadShared   []int64
	WatchShared map[int64]string
	ScoreShared []int64
}

func (x *MockExchange) CaptureEvidence(ctx context.Context, msg *Message, action, reason, category, extra string) (*Evidence, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.FailCapture {
		return nil, fmt.Errorf("evidence channel unavailable")
	}
	x.Captures = append(x.Captures, CaptureCall{action, reason, category, extra})
	return &Evidence{ChannelID: 900, MessageID: int64(len(x.Captures))}, nil
}

func (x *MockExchange) DeclareMessage(ctx context.Context, groupID, messageID int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Declared = append(x.Declared, groupUserKey{groupID, messageID})
	return nil
}

func (x *MockExchange) RequestAssist(ctx context.Context, action string, groupID, userID int64, scope string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Assists = append(x.Assists, AssistCall{action, groupID, userID, scope})
	return nil
}

func (x *MockExchange) ShareBadUser(ctx context.Context, userID int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.BadShared = append(x.BadShared, userID)
	return nil
}

func (x *MockExchange) ShareWatchBanUser(ctx context.Context, userID int64, encryptedUntil string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.WatchShared == nil {
		x.WatchShared = make(map[int64]string)
	}
	x.WatchShared[userID] = encryptedUntil
	return nil
}

func (x *MockExchange) PropagateScore(ctx context.Context, userID int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ScoreShared = append(x.ScoreShared, userID)
	return nil
}

func (x *MockExchange) CaptureCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.Captures)
}

type fixedQRDecoder struct {
	text string
}

func (d fixedQRDecoder) Decode(ctx context.Context, imagePath string) (string, error) {
	return d.text, nil
}

// TestFixture bundles an engine with its mock collaborators.
type TestFixture struct {
	Engine   *Engine
	Chat     *MockChatClient
	Exchange *MockExchange
	Users    *userstore.MemUserStore
	Configs  *configstore.MemConfigStore
	Words    *wordstore.Store
}

func EngineTestFixture() *TestFixture {
	words := wordstore.NewStore(nil, nil)
	users := userstore.NewMemUserStore()
	configs := configstore.NewMemConfigStore()
	chat := &MockChatClient{}
	exchange := &MockExchange{}

	eng := &Engine{
		Logger:           slog.Default(),
		Words:            words,
		Users:            users,
		Configs:          configs,
		Chat:             chat,
		Exchange:         exchange,
		Meta:             groupmeta.NewCache(nil, chat, 100, 50*time.Millisecond),
		SelfID:           999,
		DetectionWindow:  10 * time.Minute,
		WatchBanDuration: time.Hour,
		KickUnbanDelay:   time.Millisecond,
	}
	return &TestFixture{
		Engine:   eng,
		Chat:     chat,
		Exchange: exchange,
		Users:    users,
		Configs:  configs,
		Words:    words,
	}
}

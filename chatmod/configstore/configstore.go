package configstore

import (
	"context"
	"sync"
)

// Category flags that groups may toggle. Keys are the classifier category
// codes; a missing key means disabled.
type GroupConfig map[string]bool

// Enabled reports whether the category is turned on for this group.
func (c GroupConfig) Enabled(category string) bool {
	if c == nil {
		return false
	}
	return c[category]
}

// Read-only view of per-group configuration and membership rosters. The core
// never mutates these; they are loaded and refreshed by the surrounding
// application.
type ConfigStore interface {
	// Config returns the group's category flags; nil when the group is
	// unknown (every category disabled).
	Config(ctx context.Context, groupID int64) (GroupConfig, error)

	// IsGroupAdmin includes the designated moderator accounts for the group.
	IsGroupAdmin(ctx context.Context, groupID, userID int64) (bool, error)
	// IsKnownBot reports whether the user id belongs to a cooperating bot.
	IsKnownBot(ctx context.Context, userID int64) (bool, error)

	// Exception sets back Class E checks.
	IsExceptChannel(ctx context.Context, channelID int64) (bool, error)
	IsExceptContent(ctx context.Context, token string) (bool, error)

	// IsExemptCommand reports whether a slash-command name is allowed.
	IsExemptCommand(ctx context.Context, name string) (bool, error)
}

type MemConfigStore struct {
	mu             sync.RWMutex
	configs        map[int64]GroupConfig
	admins         map[int64]map[int64]bool
	bots           map[int64]bool
	exceptChannels map[int64]bool
	exceptContent  map[string]bool
	exemptCommands map[string]bool
}

func NewMemConfigStore() *MemConfigStore {
	return &MemConfigStore{
		configs:        make(map[int64]GroupConfig),
		admins:         make(map[int64]map[int64]bool),
		bots:           make(map[int64]bool),
		exceptChannels: make(map[int64]bool),
		exceptContent:  make(map[string]bool),
		exemptCommands: make(map[string]bool),
	}
}

func (s *MemConfigStore) Config(ctx context.Context, groupID int64) (GroupConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[groupID], nil
}

func (s *MemConfigStore) SetConfig(groupID int64, cfg GroupConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[groupID] = cfg
}

func (s *MemConfigStore) IsGroupAdmin(ctx context.Context, groupID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins[groupID][userID], nil
}

func (s *MemConfigStore) SetGroupAdmins(groupID int64, userIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[int64]bool, len(userIDs))
	for _, uid := range userIDs {
		m[uid] = true
	}
	s.admins[groupID] = m
}

func (s *MemConfigStore) IsKnownBot(ctx context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bots[userID], nil
}

func (s *MemConfigStore) AddKnownBot(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[userID] = true
}

func (s *MemConfigStore) IsExceptChannel(ctx context.Context, channelID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exceptChannels[channelID], nil
}

func (s *MemConfigStore) AddExceptChannel(channelID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptChannels[channelID] = true
}

func (s *MemConfigStore) IsExceptContent(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exceptContent[token], nil
}

func (s *MemConfigStore) AddExceptContent(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptContent[token] = true
}

func (s *MemConfigStore) IsExemptCommand(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exemptCommands[name], nil
}

func (s *MemConfigStore) AddExemptCommand(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exemptCommands[name] = true
}

package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type userRecord struct {
	mu       sync.Mutex
	detected map[int64]int64
	score    map[string]float64
}

type watchKey struct {
	kind   WatchKind
	userID int64
}

type MemUserStore struct {
	users   *xsync.MapOf[int64, *userRecord]
	bad     *xsync.MapOf[int64, struct{}]
	watches *xsync.MapOf[watchKey, int64]
}

func NewMemUserStore() *MemUserStore {
	return &MemUserStore{
		users:   xsync.NewMapOf[int64, *userRecord](),
		bad:     xsync.NewMapOf[int64, struct{}](),
		watches: xsync.NewMapOf[watchKey, int64](),
	}
}

func (s *MemUserStore) record(userID int64) *userRecord {
	rec, _ := s.users.LoadOrCompute(userID, func() *userRecord {
		return &userRecord{
			detected: make(map[int64]int64),
			score:    make(map[string]float64),
		}
	})
	return rec
}

func (s *MemUserStore) LastDetected(ctx context.Context, userID, groupID int64) (int64, error) {
	rec, ok := s.users.Load(userID)
	if !ok {
		return 0, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.detected[groupID], nil
}

func (s *MemUserStore) SetDetected(ctx context.Context, userID, groupID, now int64) (bool, error) {
	rec := s.record(userID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	_, previous := rec.detected[groupID]
	rec.detected[groupID] = now
	return previous, nil
}

func (s *MemUserStore) DetectedGroupCount(ctx context.Context, userID int64) (int, error) {
	rec, ok := s.users.Load(userID)
	if !ok {
		return 0, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.detected), nil
}

func (s *MemUserStore) TotalScore(ctx context.Context, userID int64) (float64, error) {
	rec, ok := s.users.Load(userID)
	if !ok {
		return 0, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var total float64
	for _, v := range rec.score {
		total += v
	}
	return total, nil
}

func (s *MemUserStore) SetScore(ctx context.Context, userID int64, source string, val float64) error {
	rec := s.record(userID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.score[source] = val
	return nil
}

func (s *MemUserStore) IsBad(ctx context.Context, userID int64) (bool, error) {
	_, ok := s.bad.Load(userID)
	return ok, nil
}

func (s *MemUserStore) AddBad(ctx context.Context, userID int64) (bool, error) {
	_, loaded := s.bad.LoadOrStore(userID, struct{}{})
	return !loaded, nil
}

func (s *MemUserStore) IsWatched(ctx context.Context, kind WatchKind, userID int64) (bool, error) {
	until, ok := s.watches.Load(watchKey{kind, userID})
	if !ok {
		return false, nil
	}
	// logical TTL: entries are never evicted, the comparison is the check
	return time.Now().Unix() < until, nil
}

func (s *MemUserStore) WatchExpiry(ctx context.Context, kind WatchKind, userID int64) (int64, error) {
	until, _ := s.watches.Load(watchKey{kind, userID})
	return until, nil
}

func (s *MemUserStore) SetWatch(ctx context.Context, kind WatchKind, userID, until int64) (bool, error) {
	key := watchKey{kind, userID}
	now := time.Now().Unix()
	var added bool
	s.watches.Compute(key, func(old int64, loaded bool) (int64, bool) {
		added = !loaded || now >= old
		return until, false
	})
	return added, nil
}

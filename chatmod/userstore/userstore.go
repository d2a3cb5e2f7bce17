package userstore

import (
	"context"
)

type WatchKind string

const (
	WatchBan    WatchKind = "ban"
	WatchDelete WatchKind = "delete"
)

// Per-user moderation state: last-detection timestamps per group, score
// contributions per source, permanent bad status, and time-bounded watch
// flags. Records are created lazily on first write and never deleted.
//
// Implementations must be safe for concurrent use; updates to the same user
// are atomic per key.
type UserStore interface {
	// LastDetected returns the unix timestamp of the user's last detection in
	// the group, or zero if none.
	LastDetected(ctx context.Context, userID, groupID int64) (int64, error)
	// SetDetected records a detection timestamp and reports whether a
	// previous detection existed for that group.
	SetDetected(ctx context.Context, userID, groupID, now int64) (bool, error)
	// DetectedGroupCount returns how many groups hold a detection record for
	// the user.
	DetectedGroupCount(ctx context.Context, userID int64) (int, error)

	// TotalScore is the sum of all score-source contributions.
	TotalScore(ctx context.Context, userID int64) (float64, error)
	SetScore(ctx context.Context, userID int64, source string, val float64) error

	IsBad(ctx context.Context, userID int64) (bool, error)
	// AddBad marks the user permanently bad and reports whether the user was
	// newly added. There is no removal path.
	AddBad(ctx context.Context, userID int64) (bool, error)

	// IsWatched reports whether the user is under an active watch of the
	// given kind: true iff now < expiry.
	IsWatched(ctx context.Context, kind WatchKind, userID int64) (bool, error)
	WatchExpiry(ctx context.Context, kind WatchKind, userID int64) (int64, error)
	// SetWatch sets the watch expiry and reports whether the user was not
	// already under an active watch of that kind.
	SetWatch(ctx context.Context, kind WatchKind, userID, until int64) (bool, error)
}

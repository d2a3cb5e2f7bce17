package userstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisDetectedPrefix = "user-detected/"
	redisScorePrefix    = "user-score/"
	redisBadSetKey      = "bad-users"
	redisWatchPrefix    = "watch/"
)

type RedisUserStore struct {
	Client *redis.Client
}

func NewRedisUserStore(redisURL string) (*RedisUserStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisUserStore{Client: rdb}, nil
}

func (s *RedisUserStore) LastDetected(ctx context.Context, userID, groupID int64) (int64, error) {
	key := redisDetectedPrefix + strconv.FormatInt(userID, 10)
	v, err := s.Client.HGet(ctx, key, strconv.FormatInt(groupID, 10)).Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *RedisUserStore) SetDetected(ctx context.Context, userID, groupID, now int64) (bool, error) {
	key := redisDetectedPrefix + strconv.FormatInt(userID, 10)
	field := strconv.FormatInt(groupID, 10)

	multi := s.Client.TxPipeline()
	exists := multi.HExists(ctx, key, field)
	multi.HSet(ctx, key, field, now)
	if _, err := multi.Exec(ctx); err != nil {
		return false, err
	}
	return exists.Val(), nil
}

func (s *RedisUserStore) DetectedGroupCount(ctx context.Context, userID int64) (int, error) {
	key := redisDetectedPrefix + strconv.FormatInt(userID, 10)
	n, err := s.Client.HLen(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisUserStore) TotalScore(ctx context.Context, userID int64) (float64, error) {
	key := redisScorePrefix + strconv.FormatInt(userID, 10)
	vals, err := s.Client.HGetAll(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	var total float64
	for source, raw := range vals {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt score for user %d source %s: %v", userID, source, err)
		}
		total += v
	}
	return total, nil
}

func (s *RedisUserStore) SetScore(ctx context.Context, userID int64, source string, val float64) error {
	key := redisScorePrefix + strconv.FormatInt(userID, 10)
	return s.Client.HSet(ctx, key, source, val).Err()
}

func (s *RedisUserStore) IsBad(ctx context.Context, userID int64) (bool, error) {
	return s.Client.SIsMember(ctx, redisBadSetKey, userID).Result()
}

func (s *RedisUserStore) AddBad(ctx context.Context, userID int64) (bool, error) {
	n, err := s.Client.SAdd(ctx, redisBadSetKey, userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func watchRedisKey(kind WatchKind, userID int64) string {
	return redisWatchPrefix + string(kind) + "/" + strconv.FormatInt(userID, 10)
}

func (s *RedisUserStore) IsWatched(ctx context.Context, kind WatchKind, userID int64) (bool, error) {
	until, err := s.WatchExpiry(ctx, kind, userID)
	if err != nil {
		return false, err
	}
	return time.Now().Unix() < until, nil
}

func (s *RedisUserStore) WatchExpiry(ctx context.Context, kind WatchKind, userID int64) (int64, error) {
	v, err := s.Client.Get(ctx, watchRedisKey(kind, userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *RedisUserStore) SetWatch(ctx context.Context, kind WatchKind, userID, until int64) (bool, error) {
	active, err := s.IsWatched(ctx, kind, userID)
	if err != nil {
		return false, err
	}
	// key expiry mirrors the logical TTL so stale watches clean themselves up
	ttl := time.Until(time.Unix(until, 0))
	if ttl < 0 {
		ttl = time.Minute
	}
	if err := s.Client.Set(ctx, watchRedisKey(kind, userID), until, ttl).Err(); err != nil {
		return false, err
	}
	return !active, nil
}

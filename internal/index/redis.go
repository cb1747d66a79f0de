package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisIndex keeps the claim set in a Redis SET. SADD gives the atomic
// check-and-insert; the single-instance lock discipline of the file backend
// becomes Redis's own command atomicity.
type RedisIndex struct {
	rdb *redis.Client
	key string
}

func NewRedis(rdb *redis.Client, key string) *RedisIndex {
	if key == "" {
		key = "killfeed:claims"
	}
	return &RedisIndex{rdb: rdb, key: key}
}

func (x *RedisIndex) Claim(ctx context.Context, id int64, hash string) (bool, error) {
	added, err := x.rdb.SAdd(ctx, x.key, member(id, hash)).Result()
	if err != nil {
		return false, fmt.Errorf("persist claim: %w", err)
	}
	return added == 1, nil
}

func (x *RedisIndex) Reconcile(ctx context.Context, current map[Key]struct{}) error {
	members, err := x.rdb.SMembers(ctx, x.key).Result()
	if err != nil {
		return fmt.Errorf("read claim set: %w", err)
	}

	var stale []interface{}
	for _, m := range members {
		k, ok := parseMember(m)
		if !ok {
			stale = append(stale, m)
			continue
		}
		if _, keep := current[k]; !keep {
			stale = append(stale, m)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := x.rdb.SRem(ctx, x.key, stale...).Err(); err != nil {
		return fmt.Errorf("prune claim set: %w", err)
	}
	return nil
}

func (x *RedisIndex) Snapshot(ctx context.Context) (map[Key]struct{}, error) {
	members, err := x.rdb.SMembers(ctx, x.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read claim set: %w", err)
	}
	out := make(map[Key]struct{}, len(members))
	for _, m := range members {
		if k, ok := parseMember(m); ok {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

func member(id int64, hash string) string {
	return strconv.FormatInt(id, 10) + ":" + hash
}

func parseMember(m string) (Key, bool) {
	idStr, hash, ok := strings.Cut(m, ":")
	if !ok {
		return Key{}, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Key{}, false
	}
	return Key{ID: id, Hash: hash}, true
}

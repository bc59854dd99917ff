// Package cache is the derived-data cache in front of the aggregation engine.
// It memoizes serialized summaries under structured keys with explicit TTLs and
// tag-based invalidation. The cache is an accelerator only: implementations
// swallow their own failures so a broken cache degrades reads to direct
// computation instead of surfacing errors.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Kind names the aggregate a cache entry holds.
type Kind string

const (
	KindMealRate      Kind = "meal_rate"
	KindBalance       Kind = "balance"
	KindMealCount     Kind = "meal_count"
	KindAvailable     Kind = "available_balance"
	KindGroupSummary  Kind = "group_summary"
	KindGroupDetail   Kind = "group_summary_detailed"
	KindPeriodSummary Kind = "period_summary"
)

// Key identifies a cached aggregate. Keys are built from structured fields so
// that every call site requesting the same logical aggregate resolves the same
// entry; ad hoc string concatenation is deliberately not part of the API.
type Key struct {
	RoomID   string
	PeriodID string // Empty for room-wide scope
	UserID   string // Empty for group-level aggregates
	Kind     Kind
}

// String renders the stable storage form of the key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString("dds:room:")
	b.WriteString(k.RoomID)
	b.WriteString(":period:")
	if k.PeriodID == "" {
		b.WriteString("-")
	} else {
		b.WriteString(k.PeriodID)
	}
	b.WriteString(":user:")
	if k.UserID == "" {
		b.WriteString("-")
	} else {
		b.WriteString(k.UserID)
	}
	b.WriteString(":")
	b.WriteString(string(k.Kind))
	return b.String()
}

// Tags returns the invalidation tags the entry belongs to.
func (k Key) Tags() []string {
	tags := []string{RoomTag(k.RoomID)}
	if k.PeriodID != "" {
		tags = append(tags, PeriodTag(k.PeriodID))
	}
	if k.UserID != "" {
		tags = append(tags, UserTag(k.RoomID, k.UserID))
	}
	return tags
}

// RoomTag is the invalidation tag covering every entry of a room.
func RoomTag(roomID string) string { return "tag:room:" + roomID }

// PeriodTag is the invalidation tag covering every entry of a period.
func PeriodTag(periodID string) string { return "tag:period:" + periodID }

// UserTag is the invalidation tag covering a member's entries within a room.
func UserTag(roomID, userID string) string { return "tag:user:" + roomID + ":" + userID }

// Cache is the derived-data cache port. Implementations must never propagate
// backend failures; a failing Get is a miss and a failing Set or Invalidate is
// logged and dropped.
type Cache interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, tags ...string)
}

// GetOrCompute returns the cached value for key if present and unexpired,
// otherwise invokes compute, stores the result with the given TTL and returns
// it. Concurrent misses may race and recompute more than once; recomputation is
// idempotent so the last write winning is acceptable.
func GetOrCompute[T any](ctx context.Context, c Cache, key Key, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if raw, ok := c.Get(ctx, key); ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Undecodable entries are treated as misses and overwritten below.
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	if raw, err := json.Marshal(value); err == nil {
		c.Set(ctx, key, raw, ttl)
	}
	return value, nil
}

// Noop is a Cache that stores nothing. It stands in when no redis address is
// configured and in tests that exercise the compute path.
type Noop struct{}

func (Noop) Get(context.Context, Key) ([]byte, bool)       { return nil, false }
func (Noop) Set(context.Context, Key, []byte, time.Duration) {}
func (Noop) Invalidate(context.Context, ...string)          {}

var _ Cache = Noop{}

package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/talentgate/internal/model"
)

// Default retention windows.
const (
	DefaultUserTTL      = time.Hour
	DefaultBlacklistTTL = 25 * time.Hour
)

// SessionCache holds user snapshots and revoked tokens on an optional Store.
// Every store failure is logged and swallowed: callers fall back to the
// system of record and never fail a request because of the cache.
type SessionCache struct {
	store        Store
	log          *zap.Logger
	userTTL      time.Duration
	blacklistTTL time.Duration
}

// NewSessionCache wraps store. A nil store yields a cache that is always absent.
func NewSessionCache(store Store, log *zap.Logger, userTTL, blacklistTTL time.Duration) *SessionCache {
	if log == nil {
		log = zap.NewNop()
	}
	if userTTL <= 0 {
		userTTL = DefaultUserTTL
	}
	if blacklistTTL <= 0 {
		blacklistTTL = DefaultBlacklistTTL
	}
	if store == nil {
		log.Warn("session cache initialized without a store, all cache operations are no-ops")
	}
	return &SessionCache{store: store, log: log, userTTL: userTTL, blacklistTTL: blacklistTTL}
}

// Available reports whether a backing store is configured.
func (c *SessionCache) Available() bool { return c != nil && c.store != nil }

// BlacklistTTL reports the revocation retention window.
func (c *SessionCache) BlacklistTTL() time.Duration { return c.blacklistTTL }

// UserKey is the key of a cached user snapshot.
func UserKey(id int64) string { return "user:" + strconv.FormatInt(id, 10) }

// BlacklistKey is the key of a revoked token marker.
func BlacklistKey(token string) string { return "blacklist:" + token }

// GetUser returns a cached snapshot. Undecodable entries count as misses and are dropped.
func (c *SessionCache) GetUser(ctx context.Context, id int64) (*model.User, bool) {
	if !c.Available() {
		return nil, false
	}
	key := UserKey(id)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Error("cache get", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		c.log.Warn("cache decode, dropping entry", zap.String("key", key), zap.Error(err))
		c.delete(ctx, key)
		return nil, false
	}
	return &u, true
}

// SetUser stores a snapshot of u. The password hash is never serialized.
func (c *SessionCache) SetUser(ctx context.Context, u *model.User) {
	if !c.Available() || u == nil {
		return
	}
	raw, err := json.Marshal(u)
	if err != nil {
		c.log.Error("cache encode", zap.Int64("user_id", u.ID), zap.Error(err))
		return
	}
	key := UserKey(u.ID)
	if err := c.store.Set(ctx, key, raw, c.userTTL); err != nil {
		c.log.Error("cache set", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateUser drops the snapshot of user id.
func (c *SessionCache) InvalidateUser(ctx context.Context, id int64) {
	if !c.Available() {
		return
	}
	c.delete(ctx, UserKey(id))
}

// Blacklist marks token as revoked for the retention window. Repeating it
// only refreshes the window.
func (c *SessionCache) Blacklist(ctx context.Context, token string) {
	if !c.Available() {
		return
	}
	if err := c.store.Set(ctx, BlacklistKey(token), []byte("true"), c.blacklistTTL); err != nil {
		c.log.Error("cache blacklist", zap.Error(err))
	}
}

// IsBlacklisted reports whether token was revoked. Store failures read as
// not revoked.
func (c *SessionCache) IsBlacklisted(ctx context.Context, token string) bool {
	if !c.Available() {
		return false
	}
	ok, err := c.store.Exists(ctx, BlacklistKey(token))
	if err != nil {
		c.log.Error("cache exists", zap.Error(err))
		return false
	}
	return ok
}

func (c *SessionCache) delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.Error("cache delete", zap.String("key", key), zap.Error(err))
	}
}

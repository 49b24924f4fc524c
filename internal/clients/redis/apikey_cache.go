package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/utils"
)

// APIKeyCache is a read-through cache for resolved API keys so the hot
// ingestion path skips the bcrypt compare on repeat submissions. Keys are
// stored under a SHA-256 digest of the raw key, never the key itself; a
// reverse entry per key id lets revocation evict without knowing the raw key.
type APIKeyCache interface {
	Get(ctx context.Context, rawKey string) (*requestdata.TenantContext, bool)
	Set(ctx context.Context, rawKey string, tenant *requestdata.TenantContext)
	// Invalidate drops the cached resolution for one key id. A revoked key
	// must stop authenticating immediately, not when the TTL runs out.
	Invalidate(ctx context.Context, keyID uuid.UUID)
	Close() error
}

type apiKeyCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewAPIKeyCache(log *logger.Logger) (APIKeyCache, error) {
	serviceLog := log.With("service", "APIKeyCache")

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttlSec := utils.GetEnvAsInt("API_KEY_CACHE_TTL_SECONDS", 300, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &apiKeyCache{
		log: serviceLog,
		rdb: rdb,
		ttl: time.Duration(ttlSec) * time.Second,
	}, nil
}

func cacheKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return "apikey:" + hex.EncodeToString(sum[:])
}

func reverseKey(keyID uuid.UUID) string {
	return "apikey:id:" + keyID.String()
}

func (c *apiKeyCache) Get(ctx context.Context, rawKey string) (*requestdata.TenantContext, bool) {
	val, err := c.rdb.Get(ctx, cacheKey(rawKey)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("api key cache read failed", "error", err)
		}
		return nil, false
	}
	var tc requestdata.TenantContext
	if err := json.Unmarshal(val, &tc); err != nil {
		c.log.Warn("api key cache entry corrupt, ignoring", "error", err)
		return nil, false
	}
	return &tc, true
}

func (c *apiKeyCache) Set(ctx context.Context, rawKey string, tenant *requestdata.TenantContext) {
	if tenant == nil {
		return
	}
	b, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	digest := cacheKey(rawKey)
	if err := c.rdb.Set(ctx, digest, b, c.ttl).Err(); err != nil {
		c.log.Warn("api key cache write failed", "error", err)
		return
	}
	// Reverse entry so Invalidate can find the digest from the key id alone.
	if err := c.rdb.Set(ctx, reverseKey(tenant.APIKeyID), digest, c.ttl).Err(); err != nil {
		c.log.Warn("api key reverse index write failed", "error", err)
	}
}

func (c *apiKeyCache) Invalidate(ctx context.Context, keyID uuid.UUID) {
	rev := reverseKey(keyID)
	digest, err := c.rdb.Get(ctx, rev).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("api key reverse index read failed", "error", err)
		}
		return
	}
	if err := c.rdb.Del(ctx, digest, rev).Err(); err != nil {
		c.log.Warn("api key cache eviction failed", "error", err)
	}
}

func (c *apiKeyCache) Close() error {
	return c.rdb.Close()
}

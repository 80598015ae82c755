package response

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"tasktracker/internal/core/port"
	"tasktracker/internal/core/telemetry"
	. "tasktracker/pkg/tracing"
)

type ResponseCacheConfig struct {
	TTL     time.Duration
	Enabled bool
}

// ResponseCache caches successful GET responses per account. Any successful
// write by an account drops that account's entries.
type ResponseCache struct {
	store   port.CacheRepository
	config  map[string]ResponseCacheConfig
	logger  *zap.Logger
	metrics *telemetry.AppMetrics
	keyFunc func(*gin.Context) (string, bool)
}

type CachedResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
	Timestamp  time.Time           `json:"timestamp"`
}

// NewResponseCache stores entries in store. owner returns the cache owner of
// a request, usually the authenticated account; requests without one are
// never cached.
func NewResponseCache(store port.CacheRepository, logger *zap.Logger, metrics *telemetry.AppMetrics, owner func(*gin.Context) (string, bool)) *ResponseCache {
	configs := map[string]ResponseCacheConfig{
		"/tasks": {
			TTL:     3 * time.Second,
			Enabled: true,
		},
		"/tasks/:uuid": {
			TTL:     3 * time.Second,
			Enabled: true,
		},
		"default": {
			TTL:     1 * time.Second,
			Enabled: false,
		},
	}

	return &ResponseCache{
		store:   store,
		config:  configs,
		logger:  logger,
		metrics: metrics,
		keyFunc: owner,
	}
}

func ownerPrefix(owner string) string {
	return "cache:" + owner + ":"
}

func (rc *ResponseCache) CacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := rc.keyFunc(c)
		if !ok {
			c.Next()
			return
		}

		if c.Request.Method != http.MethodGet {
			c.Next()

			if status := c.Writer.Status(); status >= 200 && status < 300 {
				rc.InvalidateOwner(c.Request.Context(), owner)
			}
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		config, exists := rc.config[path]
		if !exists {
			config = rc.config["default"]
		}

		if !config.Enabled {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := rc.generateCacheKey(c, owner, path)

		if cached, found := rc.lookup(ctx, cacheKey); found {
			_, span := CreateChildSpan(ctx, "cache.response.hit", []attribute.KeyValue{
				attribute.String("cache.key", cacheKey),
				attribute.String("cache.path", path),
				attribute.String("cache.age", time.Since(cached.Timestamp).String()),
			})
			AddSpanEvent(span, "cache.restored", []attribute.KeyValue{
				attribute.Int("cache.status_code", cached.StatusCode),
				attribute.Int("cache.body_size", len(cached.Body)),
			})
			span.End()

			if rc.metrics != nil {
				rc.metrics.RecordCacheHit(ctx, path)
			}

			rc.logger.Debug("Cache hit",
				zap.String("path", path),
				zap.String("cache_key", cacheKey),
				zap.Duration("age", time.Since(cached.Timestamp)))

			for key, values := range cached.Headers {
				for _, value := range values {
					c.Header(key, value)
				}
			}

			c.Header("X-Cache", "HIT")
			c.Header("X-Cache-Age", strconv.FormatFloat(time.Since(cached.Timestamp).Seconds(), 'f', 0, 64))

			c.Data(cached.StatusCode, "application/json", cached.Body)
			c.Abort()
			return
		}

		if rc.metrics != nil {
			rc.metrics.RecordCacheMiss(ctx, path)
		}

		rc.logger.Debug("Cache miss",
			zap.String("path", path),
			zap.String("cache_key", cacheKey))

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		if writer.Status() < 200 || writer.Status() >= 300 {
			return
		}

		err := SpanWrapper(ctx, "cache.response.store", []attribute.KeyValue{
			attribute.String("cache.key", cacheKey),
			attribute.String("cache.path", path),
			attribute.Int("cache.status_code", writer.Status()),
			attribute.String("cache.ttl", config.TTL.String()),
		}, func(ctx context.Context) error {
			payload, err := json.Marshal(CachedResponse{
				StatusCode: writer.Status(),
				Headers:    map[string][]string{"Content-Type": {"application/json; charset=utf-8"}},
				Body:       writer.body.Bytes(),
				Timestamp:  time.Now(),
			})
			if err != nil {
				return err
			}

			return rc.store.Set(ctx, cacheKey, payload, config.TTL)
		})

		if err != nil {
			rc.logger.Warn("Cache store failed", zap.String("cache_key", cacheKey), zap.Error(err))
		}
	}
}

func (rc *ResponseCache) lookup(ctx context.Context, key string) (CachedResponse, bool) {
	raw, err := rc.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, port.ErrCacheMiss) {
			rc.logger.Warn("Cache lookup failed", zap.String("cache_key", key), zap.Error(err))
		}
		return CachedResponse{}, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		rc.store.Delete(ctx, key)
		return CachedResponse{}, false
	}

	return cached, true
}

// generateCacheKey keeps the owner in clear text so that InvalidateOwner can
// drop every entry of an account by prefix.
func (rc *ResponseCache) generateCacheKey(c *gin.Context, owner, path string) string {
	hash := md5.Sum([]byte(path + "|" + c.Request.URL.RawQuery + "|" + c.GetHeader("X-Refresh-Token")))
	return fmt.Sprintf("%s%s:%x", ownerPrefix(owner), path, hash)
}

func (rc *ResponseCache) InvalidateOwner(ctx context.Context, owner string) {
	if err := rc.store.DeleteByPrefix(ctx, ownerPrefix(owner)); err != nil {
		rc.logger.Warn("Cache invalidation failed", zap.String("owner", owner), zap.Error(err))
		return
	}

	rc.logger.Debug("Cache invalidated", zap.String("owner", owner))
}

func (rc *ResponseCache) SetConfig(path string, config ResponseCacheConfig) {
	rc.config[path] = config
}

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

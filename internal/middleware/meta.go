package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openclass/openclass-api/pkg/middleware/requestid"
)

const (
	requestStartKey = "request_start"
	cacheHitKey     = "cache_hit"
)

// WithResponseMeta stamps the request start so handlers can report
// processing time in the response meta block.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the handler's payload came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	c.Set(cacheHitKey, hit)
}

// ExtractMeta assembles the meta block for analytics responses.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := map[string]interface{}{}

	if v, ok := c.Get(requestStartKey); ok {
		if start, ok := v.(time.Time); ok {
			meta["processing_time_ms"] = float64(time.Since(start).Microseconds()) / 1000
		}
	}
	if v, ok := c.Get(cacheHitKey); ok {
		if hit, ok := v.(bool); ok {
			meta["cache_hit"] = hit
		}
	}
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	return meta
}

package middleware

import "github.com/gin-gonic/gin"

const responseMetaKey = "response_meta"

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := ResponseMeta(c)
	meta["cache_hit"] = hit
}

// ResponseMeta returns the metadata attached to the current response, creating it on first use.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}

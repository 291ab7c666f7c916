package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldlead/renderbatch/cache"
	"github.com/fieldlead/renderbatch/content"
	"github.com/fieldlead/renderbatch/models"
	"github.com/fieldlead/renderbatch/renderer"
)

// Render returns a handler for POST /api/v1/render.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup (only when max_cache_age_ms > 0).
//  3. Renderer.Render → raw HTML + title + final URL.
//  4. Content post-processing (readability / markdown / text, metadata).
//  5. Cache store, return 200 (or a mapped error status on failure).
func Render(rd *renderer.Renderer, proc *content.Processor, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RenderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.RenderResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		target := renderer.NormalizeURL(req.URL)

		var cacheKey string
		if cc != nil && req.MaxCacheAgeMs > 0 {
			cacheKey = cache.Key(target, req.OutputFormat, req.ExtractMode)
			if cached, hit := cc.Get(cacheKey, req.MaxCacheAgeMs); hit {
				out := *cached
				out.CacheStatus = "hit"
				c.JSON(http.StatusOK, &out)
				return
			}
		}

		result, err := rd.Render(c.Request.Context(), req.URL)
		if err != nil {
			// Renderer-level errors mean the service cannot take work at
			// all, as opposed to a per-URL failure reported in the result.
			status := http.StatusInternalServerError
			code := models.ErrCodeInternal
			if errors.Is(err, renderer.ErrNotStarted) {
				status = http.StatusServiceUnavailable
				code = models.ErrCodeNotStarted
			}
			c.JSON(status, models.RenderResponse{
				Success: false,
				URL:     target,
				Error:   &models.ErrorDetail{Code: code, Message: err.Error()},
			})
			return
		}

		resp := toResponse(proc, result, req.OutputFormat, req.ExtractMode, req.IncludeMetadata)
		if !resp.Success {
			c.JSON(statusFor(resp.ErrorType), resp)
			return
		}

		if cacheKey != "" {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

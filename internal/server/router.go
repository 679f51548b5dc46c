// Package server exposes the conversational assistant over HTTP.
package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fulfillment-assistant/internal/common/config"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/reqctx"
)

// NewRouter wires the HTTP surface: the chat endpoints, history retrieval,
// health and metrics.
func NewRouter(h *ChatHandler, cfg config.ServerConfig, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders,
		"X-Tenant-Code", "X-User-Id", "X-Session-Id")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chat := router.Group("/chat")
	chat.Use(identityMiddleware())
	{
		chat.POST("", h.Chat)
		chat.POST("/initiate", h.Initiate)
	}

	history := router.Group("/history")
	history.Use(identityMiddleware())
	{
		history.GET("", h.History)
	}

	return router
}

// identityMiddleware builds the per-request identity from headers and the
// upstream session cookie. Requests without a user or session are rejected
// before they reach a handler.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := reqctx.Identity{
			TenantCode: c.GetHeader("X-Tenant-Code"),
			UserID:     c.GetHeader("X-User-Id"),
			SessionID:  c.GetHeader("X-Session-Id"),
			AuthCookie: c.GetHeader("Cookie"),
		}
		if id.UserID == "" || id.SessionID == "" {
			c.AbortWithStatusJSON(400, gin.H{"error": "X-User-Id and X-Session-Id headers are required"})
			return
		}
		c.Request = c.Request.WithContext(reqctx.With(c.Request.Context(), id))
		c.Next()
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("request", map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})
	}
}

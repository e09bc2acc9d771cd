package server

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/smallbiznis/fieldbook/internal/document"
)

const contextDocumentTypeKey = "document_type"

// CORS allows every origin outside production. In production only the
// configured origins are allowed, and none when the list is empty.
func CORS(cfg config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	switch {
	case !cfg.IsProduction() || slices.Contains(cfg.CORSAllowedOrigins, "*"):
		corsConfig.AllowAllOrigins = true
	case len(cfg.CORSAllowedOrigins) == 0:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	default:
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Request-Id", "X-Actor-Id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "Retry-After", "X-Request-Id")
	return cors.New(corsConfig)
}

// DocumentType tags the request so the request log carries the document kind.
func DocumentType(t document.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextDocumentTypeKey, string(t))
		c.Next()
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
	"github.com/SscSPs/txn_categorizer/internal/platform/config"
)

// RegisterRoutes sets up all application routes. rateLimiter may be nil to
// disable rate limiting.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	rateLimiter *limiter.Limiter,
) {
	registerValidators()
	r.Use(cors.New(corsConfig(cfg)))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	setupAPIV1Routes(r, cfg, services, rateLimiter)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	rateLimiter *limiter.Limiter,
) {
	chain := []gin.HandlerFunc{}
	if rateLimiter != nil {
		chain = append(chain, middleware.RateLimit(rateLimiter))
	}
	chain = append(chain, middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	v1 := r.Group("/api/v1", chain...)

	RegisterTransactionRoutes(v1, services.Transaction)
	RegisterMappingRoutes(v1, services.Approval)
	registerRoundupRoutes(v1, services.Roundup)
	registerCurrencyRoutes(v1, services.Currency)
}

func corsConfig(cfg *config.Config) cors.Config {
	cc := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.CORSAllowedOrigins
	}
	cc.AddAllowHeaders("Authorization", "X-Request-ID")
	cc.AddExposeHeaders("X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining")
	return cc
}

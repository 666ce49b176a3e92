package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nabz/internal/controllers"
	"nabz/internal/middleware"
)

// RegisterAuthRoutes wires token issuance (behind the stricter limiter) and
// the live WebSocket stream, which authenticates via query token.
func RegisterAuthRoutes(r *gin.Engine, wc *controllers.WebSocketController, logger *zap.Logger) {
	tokenLimiter := middleware.NewTokenRateLimiter()

	auth := r.Group("/auth", middleware.TokenRateLimitMiddleware(tokenLimiter, logger))
	{
		auth.GET("/token", controllers.HandleGetToken)
		auth.GET("/status", controllers.HandleTokenStatus)
	}

	r.GET("/ws", wc.HandleWebSocket)
}

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoobuddy/internal/api/handlers"
	"github.com/yoockh/yoobuddy/internal/api/middleware"
)

type Deps struct {
	Auth      *handlers.AuthHandler
	Memory    *handlers.MemoryHandler
	AudioWS   *handlers.AudioWSHandler
	Cognition *handlers.CognitionWSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/auth/register", d.Auth.Register)
	r.POST("/auth/login", d.Auth.Login)

	// Protected REST (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/memory/facts", d.Memory.Facts)
	auth.GET("/memory/events", d.Memory.Events)
	auth.GET("/history", d.Memory.History)

	// WebSockets: identity comes from the handshake frame, not the JWT
	r.GET("/ws/audio", d.AudioWS.Stream)
	r.GET("/ws/cognition", d.Cognition.Stream)
}

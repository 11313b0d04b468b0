package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Registrar interface {
	Register(router *gin.RouterGroup)
}

// NewRouter builds the engine serving /api/v1 with the given handlers.
func NewRouter(env string, logger *slog.Logger, handlers ...Registrar) *gin.Engine {
	configureGinMode(env)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderUserID, HeaderUserRole, HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Type", HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(Authenticate())

	router.GET("/livez", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	for _, h := range handlers {
		h.Register(v1)
	}
	return router
}

func configureGinMode(env string) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "debug":
		gin.SetMode(gin.DebugMode)
	case "test", "testing":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
}

package httpserver

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatcommerce/internal/domain"
	"chatcommerce/internal/engine"
)

type messageRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

type messageResponse struct {
	Reply     string            `json:"reply"`
	Push      *domain.Push      `json:"push,omitempty"`
	Broadcast *domain.Broadcast `json:"broadcast,omitempty"`
}

// buildRouter wires routes for the bot ingress.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, eng *engine.Engine, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	v1 := router.Group("/v1")
	v1.POST("/messages", messagesHandler(eng))

	return router
}

func messagesHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customerId and text are required"})
			return
		}
		if strings.TrimSpace(req.CustomerID) == "" || strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customerId and text are required"})
			return
		}

		reply := eng.Handle(c.Request.Context(), strings.TrimSpace(req.CustomerID), req.Text)

		c.JSON(http.StatusOK, messageResponse{
			Reply:     reply.Message,
			Push:      reply.Push,
			Broadcast: reply.Broadcast,
		})
	}
}

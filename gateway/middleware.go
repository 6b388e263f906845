package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	actorKey        = "actor"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID(c)),
		}
		if actor, ok := actorFrom(c); ok {
			fields = append(fields, zap.String("actor_id", actor.ID), zap.String("actor_role", string(actor.Role)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("HTTP request", fields...)
	}
}

// authenticate requires a valid bearer token and stores the actor on the context.
func (g *Gateway) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			g.respondError(c, apperr.Unauthenticated("missing bearer token"))
			c.Abort()
			return
		}

		actor, err := g.verifier.Verify(token)
		if err != nil {
			g.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) (models.Actor, bool) {
	value, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

func mustActor(c *gin.Context) models.Actor {
	actor, _ := actorFrom(c)
	return actor
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// respondError writes the error envelope. Internal failures only carry detail outside
// release mode.
func (g *Gateway) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := apperr.Message(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if gin.Mode() == gin.ReleaseMode {
			message = "internal server error"
		} else {
			message = err.Error()
		}
	}

	c.JSON(status, gin.H{
		"error":      apperr.Code(err),
		"message":    message,
		"request_id": requestID(c),
	})
}

// Package middleware holds the gin middlewares shared by the HTTP surface.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/repository"
)

// RateLimit returns a middleware limiting requests per client IP over a
// fixed window. The counter lives in the state store so the limit holds
// across replicas behind one address.
func RateLimit(stateRepo repository.StateRepository, maxRequests int, window time.Duration) gin.HandlerFunc {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// Behind a reverse proxy gin's ClientIP honors X-Forwarded-For
		// when trusted proxies are configured.
		exceeded, err := stateRepo.CheckRateLimit(c.Request.Context(), c.ClientIP(), maxRequests, window)
		if err != nil {
			// A broken limiter must not take the API down with it.
			logrus.WithError(err).Warn("RateLimit: counter check failed, allowing request")
			c.Next()
			return
		}
		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

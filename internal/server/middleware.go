package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spindown/spindown-server-go/internal/identity"
)

const actorKey = "actor"

// authenticate resolves the bearer token to a participant and stores it
// on the context. WebSocket clients may pass the token as a query
// parameter since browsers cannot set headers on upgrade requests.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor token"})
			return
		}

		p, err := s.identities.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid actor token"})
			return
		}

		c.Set(actorKey, p)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

func actor(c *gin.Context) identity.Participant {
	return c.MustGet(actorKey).(identity.Participant)
}

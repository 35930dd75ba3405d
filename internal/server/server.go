// Package server is the HTTP and WebSocket boundary. Handlers translate
// requests into manager calls and manager errors into status codes; all
// game semantics live in the room and match packages.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spindown/spindown-server-go/internal/catalog"
	"github.com/spindown/spindown-server-go/internal/errs"
	"github.com/spindown/spindown-server-go/internal/events"
	"github.com/spindown/spindown-server-go/internal/identity"
	"github.com/spindown/spindown-server-go/internal/room"
)

// Server wires the managers behind the HTTP routes.
type Server struct {
	rooms      *room.Manager
	hub        *events.Hub
	identities identity.Resolver
	cards      catalog.Resolver
	logger     *zap.Logger
}

// NewServer creates the server. cards may be nil; state snapshots then
// carry catalog ids without display metadata.
func NewServer(rooms *room.Manager, hub *events.Hub, identities identity.Resolver, cards catalog.Resolver, logger *zap.Logger) *Server {
	return &Server{
		rooms:      rooms,
		hub:        hub,
		identities: identities,
		cards:      cards,
		logger:     logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", s.authenticate())
	{
		api.POST("/rooms", s.createRoom)
		api.GET("/rooms", s.listRooms)
		api.GET("/rooms/invite/:code", s.getRoomByInviteCode)
		api.GET("/rooms/:id", s.getRoom)
		api.DELETE("/rooms/:id", s.deleteRoom)
		api.PATCH("/rooms/:id", s.updateRoom)

		api.POST("/rooms/:id/join", s.requestJoin)
		api.POST("/rooms/:id/accept/:memberID", s.acceptMember)
		api.POST("/rooms/:id/reject/:memberID", s.rejectMember)
		api.POST("/rooms/:id/deck", s.selectDeck)
		api.POST("/rooms/:id/leave", s.leave)
		api.POST("/rooms/:id/start", s.startMatch)
		api.POST("/rooms/:id/stop", s.stopMatch)
		api.POST("/rooms/:id/complete", s.completeMatch)

		api.GET("/rooms/:id/state", s.matchState)
		api.POST("/rooms/:id/state/phase/next", s.nextPhase)
		api.POST("/rooms/:id/state/draw", s.drawCard)
		api.POST("/rooms/:id/state/shuffle", s.shuffleLibrary)
		api.POST("/rooms/:id/state/untap-all", s.untapAll)
		api.POST("/rooms/:id/state/cards/:cardID/move", s.moveCard)
		api.POST("/rooms/:id/state/cards/:cardID/tap", s.tapCard)
		api.POST("/rooms/:id/state/cards/:cardID/flip", s.flipCard)
		api.POST("/rooms/:id/state/cards/:cardID/attack", s.setAttacking)
		api.POST("/rooms/:id/state/cards/:cardID/block", s.setBlocking)
		api.POST("/rooms/:id/state/cards/:cardID/damage", s.adjustDamage)
		api.POST("/rooms/:id/state/cards/:cardID/position", s.setPosition)
		api.POST("/rooms/:id/state/players/:pid/life", s.adjustLife)
		api.POST("/rooms/:id/state/players/:pid/poison", s.adjustPoison)

		api.GET("/ws/rooms/:id", s.subscribe)
	}

	return r
}

// fail maps a manager error to its HTTP status.
func fail(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Int("status", c.Writer.Status()),
			)
		}
	}
}

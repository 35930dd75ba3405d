package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spindown/spindown-server-go/internal/catalog"
	"github.com/spindown/spindown-server-go/internal/errs"
	"github.com/spindown/spindown-server-go/internal/match"
)

// liveMatch resolves the room's in-progress match for a participant.
func (s *Server) liveMatch(c *gin.Context) (*match.Match, bool) {
	roomID := c.Param("id")
	if !s.rooms.IsParticipant(roomID, actor(c).ID) {
		fail(c, errs.Permission("not a participant of this game"))
		return nil, false
	}

	m, err := s.rooms.Match(roomID)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return m, true
}

func (s *Server) matchState(c *gin.Context) {
	m, ok := s.liveMatch(c)
	if !ok {
		return
	}

	snap := m.Snapshot()
	resp := gin.H{"match": snap}
	if s.cards != nil {
		resp["catalog"] = s.catalogFor(c, snap)
	}
	c.JSON(http.StatusOK, resp)
}

// catalogFor collects display metadata for every catalog id in the
// snapshot. Unresolvable ids are simply absent; clients fall back to the
// raw id.
func (s *Server) catalogFor(c *gin.Context, snap match.Snapshot) map[string]catalog.Card {
	out := make(map[string]catalog.Card)
	for _, p := range snap.Players {
		zones := [][]match.CardSnapshot{p.Library, p.Hand, p.Battlefield, p.Graveyard, p.Exile, p.Commander}
		for _, zone := range zones {
			for _, card := range zone {
				if _, seen := out[card.CatalogID]; seen {
					continue
				}
				if meta, ok := s.cards.Lookup(c.Request.Context(), card.CatalogID); ok {
					out[card.CatalogID] = meta
				}
			}
		}
	}
	return out
}

// mutate runs a match operation and responds with the fresh snapshot.
func (s *Server) mutate(c *gin.Context, op func(m *match.Match) error) {
	m, ok := s.liveMatch(c)
	if !ok {
		return
	}
	if err := op(m); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": m.Snapshot()})
}

func (s *Server) nextPhase(c *gin.Context) {
	s.mutate(c, func(m *match.Match) error {
		return m.NextPhase(actor(c).ID)
	})
}

func (s *Server) drawCard(c *gin.Context) {
	s.mutate(c, func(m *match.Match) error {
		return m.DrawCard(actor(c).ID)
	})
}

func (s *Server) shuffleLibrary(c *gin.Context) {
	s.mutate(c, func(m *match.Match) error {
		return m.Shuffle(actor(c).ID)
	})
}

func (s *Server) untapAll(c *gin.Context) {
	s.mutate(c, func(m *match.Match) error {
		return m.UntapAll(actor(c).ID)
	})
}

type moveCardRequest struct {
	TargetParticipantID string  `json:"target_participant_id"`
	Zone                string  `json:"zone" binding:"required"`
	Position            int     `json:"position"`
	X                   float64 `json:"x"`
	Y                   float64 `json:"y"`
}

func (s *Server) moveCard(c *gin.Context) {
	var req moveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	zone := match.Zone(req.Zone)
	if !zone.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown zone"})
		return
	}

	s.mutate(c, func(m *match.Match) error {
		a := actor(c).ID
		if err := m.MoveCard(a, c.Param("cardID"), req.TargetParticipantID, zone, req.Position); err != nil {
			return err
		}
		if zone == match.ZoneBattlefield && (req.X != 0 || req.Y != 0) {
			return m.SetBattlefieldPosition(a, c.Param("cardID"), req.X, req.Y)
		}
		return nil
	})
}

type tapRequest struct {
	Tapped bool `json:"tapped"`
}

func (s *Server) tapCard(c *gin.Context) {
	var req tapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	s.mutate(c, func(m *match.Match) error {
		if req.Tapped {
			return m.TapCard(actor(c).ID, c.Param("cardID"))
		}
		return m.UntapCard(actor(c).ID, c.Param("cardID"))
	})
}

func (s *Server) flipCard(c *gin.Context) {
	s.mutate(c, func(m *match.Match) error {
		return m.FlipCard(actor(c).ID, c.Param("cardID"))
	})
}

type combatRequest struct {
	Active bool `json:"active"`
}

func (s *Server) setAttacking(c *gin.Context) {
	var req combatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	s.mutate(c, func(m *match.Match) error {
		return m.SetAttacking(actor(c).ID, c.Param("cardID"), req.Active)
	})
}

func (s *Server) setBlocking(c *gin.Context) {
	var req combatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	s.mutate(c, func(m *match.Match) error {
		return m.SetBlocking(actor(c).ID, c.Param("cardID"), req.Active)
	})
}

type deltaRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (s *Server) adjustDamage(c *gin.Context) {
	var req deltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	s.mutate(c, func(m *match.Match) error {
		return m.AdjustDamage(actor(c).ID, c.Param("cardID"), req.Delta)
	})
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) setPosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	s.mutate(c, func(m *match.Match) error {
		return m.SetBattlefieldPosition(actor(c).ID, c.Param("cardID"), req.X, req.Y)
	})
}

func (s *Server) adjustLife(c *gin.Context) {
	var req deltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	s.mutate(c, func(m *match.Match) error {
		return m.AdjustLife(actor(c).ID, c.Param("pid"), req.Delta)
	})
}

func (s *Server) adjustPoison(c *gin.Context) {
	var req deltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	s.mutate(c, func(m *match.Match) error {
		return m.AdjustPoison(actor(c).ID, c.Param("pid"), req.Delta)
	})
}

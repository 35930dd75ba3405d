package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spindown/spindown-server-go/internal/room"
)

type createRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	Capacity    int    `json:"capacity" binding:"required"`
	Bracket     string `json:"bracket"`
}

func (s *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	p := actor(c)
	snap, err := s.rooms.CreateRoom(c.Request.Context(), p.ID, p.Name, room.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  room.Visibility(req.Visibility),
		Capacity:    req.Capacity,
		Bracket:     room.Bracket(req.Bracket),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (s *Server) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.rooms.ListRooms(actor(c).ID)})
}

func (s *Server) getRoom(c *gin.Context) {
	snap, err := s.rooms.GetRoom(c.Param("id"), actor(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) getRoomByInviteCode(c *gin.Context) {
	snap, err := s.rooms.GetRoomByInviteCode(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) deleteRoom(c *gin.Context) {
	if err := s.rooms.DeleteRoom(c.Request.Context(), c.Param("id"), actor(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type updateRoomRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
	Capacity    *int    `json:"capacity"`
	Bracket     *string `json:"bracket"`
}

func (s *Server) updateRoom(c *gin.Context) {
	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	upd := room.RoomUpdate{
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
	}
	if req.Visibility != nil {
		v := room.Visibility(*req.Visibility)
		upd.Visibility = &v
	}
	if req.Bracket != nil {
		b := room.Bracket(*req.Bracket)
		upd.Bracket = &b
	}

	if err := s.rooms.UpdateRoom(c.Request.Context(), c.Param("id"), actor(c).ID, upd); err != nil {
		fail(c, err)
		return
	}
	s.roomSnapshot(c)
}

func (s *Server) requestJoin(c *gin.Context) {
	p := actor(c)
	m, err := s.rooms.RequestJoin(c.Request.Context(), c.Param("id"), p.ID, p.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) acceptMember(c *gin.Context) {
	if err := s.rooms.Accept(c.Request.Context(), c.Param("id"), c.Param("memberID"), actor(c).ID); err != nil {
		fail(c, err)
		return
	}
	s.roomSnapshot(c)
}

func (s *Server) rejectMember(c *gin.Context) {
	if err := s.rooms.Reject(c.Request.Context(), c.Param("id"), c.Param("memberID"), actor(c).ID); err != nil {
		fail(c, err)
		return
	}
	s.roomSnapshot(c)
}

type selectDeckRequest struct {
	DeckID string `json:"deck_id" binding:"required"`
}

func (s *Server) selectDeck(c *gin.Context) {
	var req selectDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if err := s.rooms.SelectDeck(c.Request.Context(), c.Param("id"), actor(c).ID, req.DeckID); err != nil {
		fail(c, err)
		return
	}
	s.roomSnapshot(c)
}

func (s *Server) leave(c *gin.Context) {
	if err := s.rooms.Leave(c.Request.Context(), c.Param("id"), actor(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (s *Server) startMatch(c *gin.Context) {
	if err := s.rooms.StartMatch(c.Request.Context(), c.Param("id"), actor(c).ID); err != nil {
		fail(c, err)
		return
	}
	s.roomSnapshot(c)
}

func (s *Server) stopMatch(c *gin.Context) {
	if err := s.rooms.StopMatch(c.Request.Context(), c.Param("id"), actor(c).ID); err != nil {
		fail(c, err)
		return
	}
	s.roomSnapshot(c)
}

func (s *Server) completeMatch(c *gin.Context) {
	if err := s.rooms.CompleteMatch(c.Request.Context(), c.Param("id"), actor(c).ID); err != nil {
		fail(c, err)
		return
	}
	s.roomSnapshot(c)
}

// roomSnapshot responds with the room state after a successful mutation.
func (s *Server) roomSnapshot(c *gin.Context) {
	snap, err := s.rooms.GetRoom(c.Param("id"), actor(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

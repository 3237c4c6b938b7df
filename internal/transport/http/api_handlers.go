package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

// APIHandlers serves the request/response query endpoints.
type APIHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub: hub,
		log: logger,
	}
}

// HistoryQuery holds the history request parameters.
type HistoryQuery struct {
	User string `form:"user" binding:"required,max=64"`
	Peer string `form:"peer" binding:"required,max=64"`
}

// UsersResponse lists present identities.
type UsersResponse struct {
	Users []string `json:"users"`
}

// HistoryResponse holds a conversation, oldest first.
type HistoryResponse struct {
	Peer     string            `json:"peer"`
	Messages []proto.EventChat `json:"messages"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Users returns the directory of present identities.
// GET /api/users
func (h *APIHandlers) Users(c *gin.Context) {
	c.JSON(http.StatusOK, UsersResponse{Users: h.hub.Presence().Identities()})
}

// History returns the direct conversation between user and peer. user must
// be present in the registry.
// GET /api/history?user=alice&peer=bob
func (h *APIHandlers) History(c *gin.Context) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.log.Debug().Err(err).Msg("invalid history query")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user and peer are required"})
		return
	}

	messages, err := h.hub.Router().HistoryFor(c.Request.Context(), q.User, q.Peer)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: core.ErrCodeUnauthenticated})
		case errors.Is(err, core.ErrStorageUnavailable):
			h.log.Error().Err(err).Str("user", q.User).Str("peer", q.Peer).Msg("failed to load history")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeStorageUnavailable})
		default:
			h.log.Error().Err(err).Msg("history query failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Peer:     q.Peer,
		Messages: lo.Map(messages, func(m core.Message, _ int) proto.EventChat { return chatFromMessage(m) }),
	})
}

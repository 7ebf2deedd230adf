package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// ConversationHandlers serves the read API for clients without a socket.
type ConversationHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewConversationHandlers creates a new conversation handlers instance.
func NewConversationHandlers(hub *core.Hub, logger *zerolog.Logger) *ConversationHandlers {
	return &ConversationHandlers{hub: hub, log: logger}
}

// List returns the caller's sidebar.
// GET /api/conversations
func (h *ConversationHandlers) List(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	summaries, err := h.hub.Sidebar(c.Request.Context(), uid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sidebarToProto(summaries))
}

// Messages returns the thread between the caller and a peer.
// GET /api/conversations/:peerID/messages
func (h *ConversationHandlers) Messages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	peerID, ok := pathID(c, "peerID")
	if !ok {
		return
	}

	convID, messages, err := h.hub.Thread(c.Request.Context(), uid, peerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, threadToProto(convID, peerID, messages))
}

// User returns a peer snapshot.
// GET /api/users/:id
func (h *ConversationHandlers) User(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	peer, err := h.hub.Peer(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, peerToProto(*peer))
}

func (h *ConversationHandlers) writeError(c *gin.Context, err error) {
	ce := core.AsCoreError(err)
	status := http.StatusInternalServerError
	switch ce.Code {
	case core.ErrCodeNotFound:
		status = http.StatusNotFound
	case core.ErrCodeValidation, core.ErrCodeBadRequest:
		status = http.StatusBadRequest
	case core.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("api request failed")
	}
	c.JSON(status, ErrorResponse{Error: ce.Message, Code: ce.Code})
}

func currentUserID(c *gin.Context) (int64, bool) {
	uid := c.GetInt64(ContextKeyUserID)
	if uid <= 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: core.ErrCodeUnauthenticated})
		return 0, false
	}
	return uid, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name, Code: core.ErrCodeBadRequest})
		return 0, false
	}
	return id, true
}

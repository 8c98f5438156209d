package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/dto"
)

// SessionHandler exposes the current session snapshot
type SessionHandler struct {
	session Session
}

func NewSessionHandler(session Session) *SessionHandler {
	return &SessionHandler{session: session}
}

// Get returns the current snapshot
func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSessionResponse(h.session.Current()))
}

// Events streams snapshots as server-sent events until the client goes away.
// A slow client skips intermediate snapshots but always gets the latest one.
func (h *SessionHandler) Events(c *gin.Context) {
	snapshots := h.session.Observe(c.Request.Context())

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		snap, ok := <-snapshots
		if !ok {
			return false
		}
		c.SSEvent("session", dto.NewSessionResponse(snap))
		return true
	})
}

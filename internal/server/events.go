package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// handleEvents streams entry-change notifications for the caller as
// server-sent events, with periodic heartbeats.
func (h *httpHandler) handleEvents(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	stream, cancel := h.realtime.Subscribe(ctx, userID.String())
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	c.SSEvent(realtimeEventHeartbeat, RealtimeMessage{Timestamp: h.clock()}.payload())
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent(message.EventType, message.payload())
			return true
		case now := <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, RealtimeMessage{Timestamp: now}.payload())
			return true
		}
	})
}

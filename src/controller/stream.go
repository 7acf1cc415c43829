package controller

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/events"
	"access-coordinator/src/middleware"
)

// streamBuffer bounds how many diffs a slow client can fall behind before
// updates are dropped for it. Clients recover by refetching the lists.
const streamBuffer = 64

// StreamController pushes record diffs to clients over server-sent events.
type StreamController struct {
	Bus *events.Bus
}

// NewStreamController creates a new stream controller
func NewStreamController(bus *events.Bus) *StreamController {
	return &StreamController{
		Bus: bus,
	}
}

// @Summary Stream record changes
// @Description Server-sent event stream of session, queue, extension and notification changes. Notification diffs are delivered only to their target user.
// @Tags stream
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /stream [get]
func (sc *StreamController) Stream(ctx *gin.Context) {
	callerID := middleware.CallerID(ctx)

	changes := make(chan events.Change, streamBuffer)
	id := sc.Bus.SubscribeAll(func(change events.Change) {
		if change.Channel == events.ChannelNotifications && change.TargetUserID != callerID {
			return
		}
		select {
		case changes <- change:
		default:
			slog.Warn("Dropping change for slow stream client", "user_id", callerID)
		}
	})
	defer sc.Bus.Unsubscribe(id)

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")

	done := ctx.Request.Context().Done()
	ctx.Stream(func(w io.Writer) bool {
		select {
		case change := <-changes:
			payload, err := json.Marshal(change)
			if err != nil {
				slog.Error("Failed to encode change", "error", err)
				return true
			}
			ctx.SSEvent(string(change.Channel), string(payload))
			return true
		case <-done:
			return false
		}
	})
}

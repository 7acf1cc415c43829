package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/middleware"
	"access-coordinator/src/models"
	"access-coordinator/src/schemas"
	"access-coordinator/src/service"
	"access-coordinator/src/utils"
)

// SessionController exposes the sessions channel and the two ways a session
// ends before its deadline: holder release and privileged termination.
type SessionController struct {
	Lifecycle *service.LifecycleService
}

// NewSessionController creates a new session controller
func NewSessionController(lifecycle *service.LifecycleService) *SessionController {
	return &SessionController{
		Lifecycle: lifecycle,
	}
}

// @Summary List sessions for a resource
// @Description Returns current and past sessions, newest first; filterable by status
// @Tags sessions
// @Produce json
// @Param resourceId path string true "Resource ID"
// @Param status query string false "Filter by status (active or ended)"
// @Success 200 {object} schemas.SessionListResponse
// @Failure 500 {object} schemas.ErrorResponse
// @Router /resources/{resourceId}/sessions [get]
func (sc *SessionController) ListSessions(ctx *gin.Context) {
	resourceID := ctx.Param("resourceId")

	var status *models.SessionStatus
	if raw := ctx.Query("status"); raw != "" {
		s := models.SessionStatus(raw)
		status = &s
	}

	sessions, err := sc.Lifecycle.ListSessions(ctx.Request.Context(), resourceID, status)
	if err != nil {
		utils.SendDomainError(ctx, err, "/resources/"+resourceID+"/sessions")
		return
	}

	now := time.Now()
	views := make([]schemas.SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, schemas.SessionView{
			Session:          session,
			RemainingSeconds: int(session.Remaining(now).Seconds()),
		})
	}

	ctx.JSON(http.StatusOK, schemas.SessionListResponse{
		ResourceID: resourceID,
		Sessions:   views,
	})
}

// @Summary Release a session
// @Description Ends the caller's own session and promotes the next waiter
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} schemas.MessageResponse
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Failure 409 {object} schemas.ErrorResponse
// @Router /sessions/{id}/release [post]
func (sc *SessionController) Release(ctx *gin.Context) {
	sessionID := ctx.Param("id")
	userID := middleware.CallerID(ctx)

	if err := sc.Lifecycle.Release(ctx.Request.Context(), sessionID, userID); err != nil {
		slog.Error("Failed to release session",
			"session_id", sessionID,
			"user_id", userID,
			"error", err.Error())
		utils.SendDomainError(ctx, err, "/sessions/"+sessionID+"/release")
		return
	}

	ctx.JSON(http.StatusOK, schemas.MessageResponse{Message: "Session released"})
}

// @Summary Terminate a session
// @Description Forcibly ends another user's session; requires a privileged role outranking the holder
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} schemas.MessageResponse
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Failure 409 {object} schemas.ErrorResponse
// @Router /sessions/{id}/terminate [post]
func (sc *SessionController) Terminate(ctx *gin.Context) {
	sessionID := ctx.Param("id")
	userID := middleware.CallerID(ctx)

	if err := sc.Lifecycle.Terminate(ctx.Request.Context(), sessionID, userID, middleware.CallerRole(ctx)); err != nil {
		slog.Error("Failed to terminate session",
			"session_id", sessionID,
			"by_user_id", userID,
			"error", err.Error())
		utils.SendDomainError(ctx, err, "/sessions/"+sessionID+"/terminate")
		return
	}

	slog.Info("Session terminated",
		"session_id", sessionID,
		"by_user_id", userID)

	ctx.JSON(http.StatusOK, schemas.MessageResponse{Message: "Session terminated"})
}

package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/middleware"
	"access-coordinator/src/models"
	"access-coordinator/src/schemas"
	"access-coordinator/src/service"
	"access-coordinator/src/utils"
)

// NotificationController exposes the caller's notification inbox.
type NotificationController struct {
	Notifier *service.Notifier
}

// NewNotificationController creates a new notification controller
func NewNotificationController(notifier *service.Notifier) *NotificationController {
	return &NotificationController{
		Notifier: notifier,
	}
}

// @Summary List pending notifications
// @Description Returns the caller's unconsumed notifications, oldest first
// @Tags notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Failure 500 {object} schemas.ErrorResponse
// @Router /notifications [get]
func (nc *NotificationController) List(ctx *gin.Context) {
	notifications, err := nc.Notifier.ListForUser(ctx.Request.Context(), middleware.CallerID(ctx))
	if err != nil {
		utils.SendDomainError(ctx, err, "/notifications")
		return
	}

	ctx.JSON(http.StatusOK, notifications)
}

// @Summary Acknowledge a notification
// @Description Consumes a notification; acknowledging one that is already consumed is a no-op
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} schemas.MessageResponse
// @Router /notifications/{id} [delete]
func (nc *NotificationController) Ack(ctx *gin.Context) {
	notificationID := ctx.Param("id")

	err := nc.Notifier.Ack(ctx.Request.Context(), notificationID, middleware.CallerID(ctx))
	if err != nil && !errors.Is(err, models.ErrNotificationNotFound) {
		utils.SendDomainError(ctx, err, "/notifications/"+notificationID)
		return
	}

	// A duplicate delivery lands here with ErrNotificationNotFound; the
	// client must treat the notification as handled either way.
	ctx.JSON(http.StatusOK, schemas.MessageResponse{Message: "Notification acknowledged"})
}

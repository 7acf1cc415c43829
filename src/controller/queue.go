package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/middleware"
	"access-coordinator/src/schemas"
	"access-coordinator/src/service"
	"access-coordinator/src/utils"
)

// QueueController exposes the queues channel and the admin queue overrides.
type QueueController struct {
	Admission *service.AdmissionService
}

// NewQueueController creates a new queue controller
func NewQueueController(admission *service.AdmissionService) *QueueController {
	return &QueueController{
		Admission: admission,
	}
}

// @Summary List a resource's queue
// @Description Returns the waiting list sorted by role priority then arrival
// @Tags queues
// @Produce json
// @Param resourceId path string true "Resource ID"
// @Success 200 {object} schemas.QueueListResponse
// @Failure 500 {object} schemas.ErrorResponse
// @Router /resources/{resourceId}/queue [get]
func (qc *QueueController) List(ctx *gin.Context) {
	resourceID := ctx.Param("resourceId")

	entries, err := qc.Admission.ListQueue(ctx.Request.Context(), resourceID)
	if err != nil {
		utils.SendDomainError(ctx, err, "/resources/"+resourceID+"/queue")
		return
	}

	ctx.JSON(http.StatusOK, schemas.QueueListResponse{
		ResourceID: resourceID,
		Entries:    entries,
	})
}

// @Summary Move a queue entry to the front
// @Description Admin override: rewrites the entry's arrival time so it sorts first within its priority
// @Tags queues
// @Produce json
// @Param id path string true "Queue Entry ID"
// @Success 200 {object} schemas.MessageResponse
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Router /queue/entries/{id}/pin [post]
func (qc *QueueController) Pin(ctx *gin.Context) {
	entryID := ctx.Param("id")

	if err := qc.Admission.PinToFront(ctx.Request.Context(), entryID, middleware.CallerRole(ctx)); err != nil {
		utils.SendDomainError(ctx, err, "/queue/entries/"+entryID+"/pin")
		return
	}

	ctx.JSON(http.StatusOK, schemas.MessageResponse{Message: "Entry moved to front"})
}

// @Summary Remove a queue entry
// @Description Admin removal of another user's waiting-list entry
// @Tags queues
// @Produce json
// @Param id path string true "Queue Entry ID"
// @Success 200 {object} schemas.MessageResponse
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Router /queue/entries/{id} [delete]
func (qc *QueueController) Remove(ctx *gin.Context) {
	entryID := ctx.Param("id")

	if err := qc.Admission.RemoveEntry(ctx.Request.Context(), entryID, middleware.CallerRole(ctx)); err != nil {
		utils.SendDomainError(ctx, err, "/queue/entries/"+entryID)
		return
	}

	ctx.JSON(http.StatusOK, schemas.MessageResponse{Message: "Entry removed"})
}

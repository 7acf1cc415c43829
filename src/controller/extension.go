package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/middleware"
	"access-coordinator/src/models"
	"access-coordinator/src/repository"
	"access-coordinator/src/schemas"
	"access-coordinator/src/service"
	"access-coordinator/src/utils"
)

// ExtensionController exposes extension requests: creation by the session
// holder, decisions by privileged roles, and the filterable listing.
type ExtensionController struct {
	Extensions *service.ExtensionService
}

// NewExtensionController creates a new extension controller
func NewExtensionController(extensions *service.ExtensionService) *ExtensionController {
	return &ExtensionController{
		Extensions: extensions,
	}
}

// @Summary Request a time extension
// @Description Creates a pending extension request for the caller's own bounded session
// @Tags extensions
// @Accept json
// @Produce json
// @Param ExtensionCreateRequest body schemas.ExtensionCreateRequest true "Extension Request"
// @Success 201 {object} models.ExtensionRequest
// @Failure 400 {object} schemas.ErrorResponse
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 409 {object} schemas.ErrorResponse
// @Router /extensions [post]
func (ec *ExtensionController) Create(ctx *gin.Context) {
	var req schemas.ExtensionCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.SendError(ctx, http.StatusBadRequest, "Bad Request", "Invalid JSON format: "+err.Error(), "https://access-coordinator.com/validation-error", "/extensions")
		return
	}

	created, err := ec.Extensions.RequestExtension(ctx.Request.Context(), req.SessionID, middleware.CallerID(ctx), req.Minutes)
	if err != nil {
		utils.SendDomainError(ctx, err, "/extensions")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// @Summary Decide an extension request
// @Description Approves or rejects a pending request; approval applies the extension exactly once
// @Tags extensions
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param ExtensionDecisionRequest body schemas.ExtensionDecisionRequest true "Decision"
// @Success 200 {object} models.ExtensionRequest
// @Failure 400 {object} schemas.ErrorResponse
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Failure 409 {object} schemas.ErrorResponse
// @Router /extensions/{id}/decision [post]
func (ec *ExtensionController) Decide(ctx *gin.Context) {
	requestID := ctx.Param("id")

	var req schemas.ExtensionDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.SendError(ctx, http.StatusBadRequest, "Bad Request", "Invalid JSON format: "+err.Error(), "https://access-coordinator.com/validation-error", "/extensions/"+requestID+"/decision")
		return
	}

	userID := middleware.CallerID(ctx)
	decided, err := ec.Extensions.DecideExtension(ctx.Request.Context(), requestID, req.Approve, userID, middleware.CallerRole(ctx))
	if err != nil {
		slog.Error("Failed to decide extension request",
			"request_id", requestID,
			"by_user_id", userID,
			"error", err.Error())
		utils.SendDomainError(ctx, err, "/extensions/"+requestID+"/decision")
		return
	}

	ctx.JSON(http.StatusOK, decided)
}

// @Summary List extension requests
// @Description Returns requests filterable by session, user and status
// @Tags extensions
// @Produce json
// @Param session_id query string false "Filter by session"
// @Param user_id query string false "Filter by user"
// @Param status query string false "Filter by status"
// @Success 200 {array} models.ExtensionRequest
// @Failure 500 {object} schemas.ErrorResponse
// @Router /extensions [get]
func (ec *ExtensionController) List(ctx *gin.Context) {
	filter := repository.ExtensionFilter{
		SessionID: ctx.Query("session_id"),
		UserID:    ctx.Query("user_id"),
		Status:    models.ExtensionStatus(ctx.Query("status")),
	}

	requests, err := ec.Extensions.ListExtensions(ctx.Request.Context(), filter)
	if err != nil {
		utils.SendDomainError(ctx, err, "/extensions")
		return
	}

	ctx.JSON(http.StatusOK, requests)
}

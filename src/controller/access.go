package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/middleware"
	"access-coordinator/src/schemas"
	"access-coordinator/src/service"
	"access-coordinator/src/utils"
)

// AccessController exposes admission: requesting control of a resource and
// withdrawing from its queue.
type AccessController struct {
	Admission *service.AdmissionService
}

// NewAccessController creates a new access controller
func NewAccessController(admission *service.AdmissionService) *AccessController {
	return &AccessController{
		Admission: admission,
	}
}

// @Summary Request resource access
// @Description Grants immediate control, returns the caller's existing session, or enqueues the caller
// @Tags access
// @Accept json
// @Produce json
// @Param AccessRequest body schemas.AccessRequest true "Access Request"
// @Success 200 {object} schemas.AccessResponse
// @Failure 400 {object} schemas.ErrorResponse
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Failure 409 {object} schemas.ErrorResponse
// @Router /access/request [post]
func (ac *AccessController) RequestAccess(ctx *gin.Context) {
	var req schemas.AccessRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.SendError(ctx, http.StatusBadRequest, "Bad Request", "Invalid JSON format: "+err.Error(), "https://access-coordinator.com/validation-error", "/access/request")
		return
	}

	userID := middleware.CallerID(ctx)
	response, err := ac.Admission.RequestAccess(ctx.Request.Context(), userID, middleware.CallerEmail(ctx), middleware.CallerRole(ctx), req.ResourceID)
	if err != nil {
		slog.Error("Access request failed",
			"resource_id", req.ResourceID,
			"user_id", userID,
			"error", err.Error())
		utils.SendDomainError(ctx, err, "/access/request")
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// @Summary Withdraw from a queue
// @Description Removes the caller's own waiting-list entry for a resource
// @Tags access
// @Accept json
// @Produce json
// @Param WithdrawRequest body schemas.WithdrawRequest true "Withdraw Request"
// @Success 200 {object} schemas.MessageResponse
// @Failure 400 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Router /access/withdraw [post]
func (ac *AccessController) Withdraw(ctx *gin.Context) {
	var req schemas.WithdrawRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.SendError(ctx, http.StatusBadRequest, "Bad Request", "Invalid JSON format: "+err.Error(), "https://access-coordinator.com/validation-error", "/access/withdraw")
		return
	}

	userID := middleware.CallerID(ctx)
	if err := ac.Admission.Withdraw(ctx.Request.Context(), userID, req.ResourceID); err != nil {
		utils.SendDomainError(ctx, err, "/access/withdraw")
		return
	}

	ctx.JSON(http.StatusOK, schemas.MessageResponse{Message: "Withdrawn from queue"})
}

// @Summary List visible resources
// @Description Returns the resources the caller's role may view
// @Tags access
// @Produce json
// @Success 200 {array} models.Resource
// @Router /resources [get]
func (ac *AccessController) ListResources(ctx *gin.Context) {
	resources, err := ac.Admission.ListResources(ctx.Request.Context(), middleware.CallerRole(ctx))
	if err != nil {
		utils.SendDomainError(ctx, err, "/resources")
		return
	}

	ctx.JSON(http.StatusOK, resources)
}

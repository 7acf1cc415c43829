package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/service"
	"access-coordinator/src/utils"
)

const defaultLogLimit = 100

// LogController serves the session audit trail to privileged callers.
type LogController struct {
	Logs service.LogStore
}

// NewLogController creates a new log controller
func NewLogController(logs service.LogStore) *LogController {
	return &LogController{
		Logs: logs,
	}
}

// @Summary List session audit logs
// @Description Returns the most recent session lifecycle events, newest first
// @Tags logs
// @Produce json
// @Param limit query int false "Maximum number of entries" default(100)
// @Success 200 {array} models.SessionLog
// @Failure 403 {object} schemas.ErrorResponse
// @Failure 500 {object} schemas.ErrorResponse
// @Router /logs [get]
func (lc *LogController) List(ctx *gin.Context) {
	limit := defaultLogLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := lc.Logs.List(ctx.Request.Context(), limit)
	if err != nil {
		utils.SendDomainError(ctx, err, "/logs")
		return
	}

	ctx.JSON(http.StatusOK, logs)
}

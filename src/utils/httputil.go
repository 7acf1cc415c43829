package utils

import (
	"access-coordinator/src/schemas"

	"github.com/bytedance/gopkg/util/logger"
	"github.com/gin-gonic/gin"
)

func SendError(ctx *gin.Context, status int, title string, detail string, errType string, instance string) {
	errorResp := schemas.ErrorResponse{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
	ctx.JSON(status, errorResp)
	logger.Error("Error: ", detail)
}

// SendDomainError translates a domain error into its RFC 7807 response and
// writes it.
func SendDomainError(ctx *gin.Context, err error, instance string) {
	errorResp := schemas.FromDomainError(err, instance)
	ctx.JSON(errorResp.Status, errorResp)
	logger.Error("Error: ", errorResp.Detail)
}

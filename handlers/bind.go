package handlers

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/joeyportfolio/portfolio/errors"
)

func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return false
	}
	return true
}

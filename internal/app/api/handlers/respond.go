package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/pkg/apperr"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/response"
)

// fail writes the error envelope for a service error. Unexpected errors are
// logged and their details kept out of the response.
func fail(c *gin.Context, base *zap.SugaredLogger, event string, err error) {
	if response.CodeOf(err) == response.APIResponseCodeError {
		logctx.FromGin(c, base).Errorw(event, "error", err)
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, apperr.ErrInternal.Error()))
		return
	}
	c.JSON(http.StatusOK, response.FromError(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
}

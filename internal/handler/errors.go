package handler

import (
	"errors"
	"net/http"

	"invexis/internal/ledger"
	"invexis/internal/scanner"
	"invexis/pkg/logger"
	"invexis/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.Invalid(http.StatusBadRequest, err.Error(), verr.Fields))
	case errors.Is(err, ledger.ErrDuplicateBatchNumber):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, ledger.ErrItemNotFound), errors.Is(err, scanner.ErrScanNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, scanner.ErrScanState):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		logger.Error(c.Request.Context()).Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

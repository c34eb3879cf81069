package handler

import (
	"errors"
	"net/http"

	"carousel-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Коды ошибок API.
const (
	ErrCodeBadRequest           = "bad_request"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeForbidden            = "forbidden"
	ErrCodeNotFound             = "not_found"
	ErrCodeGenerationInProgress = "generation_in_progress"
	ErrCodeContractViolation    = "contract_violation"
	ErrCodeUpstream             = "upstream_error"
	ErrCodeConfiguration        = "configuration_error"
	ErrCodeInternal             = "internal_error"
)

// ErrorResponse тело ответа с ошибкой.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *CarouselHandler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp ErrorResponse

	switch {
	case errors.Is(err, models.ErrConfiguration):
		statusCode = http.StatusServiceUnavailable
		errResp = ErrorResponse{Code: ErrCodeConfiguration, Message: err.Error()}
	case errors.Is(err, models.ErrGenerationInProgress):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeGenerationInProgress, Message: "Generation is already running for this document"}
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = ErrorResponse{Code: ErrCodeUnauthorized, Message: "Unauthorized"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = ErrorResponse{Code: ErrCodeForbidden, Message: "Access denied"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeNotFound, Message: "Resource not found"}
	case errors.Is(err, models.ErrContractViolation), errors.Is(err, models.ErrNonJSON):
		statusCode = http.StatusUnprocessableEntity
		errResp = ErrorResponse{Code: ErrCodeContractViolation, Message: err.Error()}
	case errors.Is(err, models.ErrTransport):
		statusCode = http.StatusBadGateway
		errResp = ErrorResponse{Code: ErrCodeUpstream, Message: err.Error()}
	default:
		h.logger.Error("Unhandled internal error", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: message})
}

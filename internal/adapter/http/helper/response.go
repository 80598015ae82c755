package helper

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	. "tasktracker/internal/adapter/http/validation"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/response"
	"tasktracker/pkg/config"
)

func SendSuccess(c *gin.Context, statusCode int, data any, message ...string) {
	response := response.SuccessResponse{
		Data: data,
	}

	if len(message) > 0 && message[0] != "" {
		response.Message = message[0]
	}

	c.JSON(statusCode, response)
}

func SendError(c *gin.Context, statusCode int, code string, errors []response.ValidationError, details ...any) {
	errorResponse := response.ErrorResponse{
		Error: response.ResponseError{
			Code:   code,
			Errors: errors,
		},
	}

	if len(details) > 0 {
		errorResponse.Error.Details = details[0]
	}

	c.AbortWithStatusJSON(statusCode, errorResponse)
}

func SendValidationError(c *gin.Context, err error) {
	validationErrors := FormatValidationErrors(err)
	SendError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErrors)
}

func SendInternalError(c *gin.Context, message string, details ...any) {
	errors := []response.ValidationError{
		{
			Field:   "server",
			Message: message,
		},
	}

	SendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", errors, details...)
}

func SendUnauthorizedError(c *gin.Context, message string) {
	errors := []response.ValidationError{
		{
			Field:   "auth",
			Message: message,
		},
	}

	SendError(c, http.StatusUnauthorized, "UNAUTHORIZED", errors)
}

func SendBadRequestError(c *gin.Context, field string, message string) {
	errors := []response.ValidationError{
		{
			Field:   field,
			Message: message,
		},
	}

	SendError(c, http.StatusBadRequest, "BAD_REQUEST", errors)
}

func SendNotFoundError(c *gin.Context, message string) {
	errors := []response.ValidationError{
		{
			Field:   "resource",
			Message: message,
		},
	}

	SendError(c, http.StatusNotFound, "NOT_FOUND", errors)
}

// SendDomainError maps an error returned by a service onto the error
// envelope. Anything that is not a domain.Error is logged and reported as a
// generic 500.
func SendDomainError(c *gin.Context, logger *config.LokiLogger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logInternal(c, logger, err)
		SendInternalError(c, "An unexpected error occurred")
		return
	}

	switch de.Kind {
	case domain.KindValidation, domain.KindRule:
		fieldErrors := make([]response.ValidationError, 0, len(de.Fields))
		for _, f := range de.Fields {
			fieldErrors = append(fieldErrors, response.ValidationError{Field: f.Field, Message: f.Message})
		}
		if len(fieldErrors) == 0 {
			fieldErrors = append(fieldErrors, response.ValidationError{Field: "request", Message: de.Message})
		}
		SendError(c, http.StatusBadRequest, "VALIDATION_ERROR", fieldErrors)
	case domain.KindNotFound:
		SendNotFoundError(c, de.Message)
	case domain.KindUnauthorized:
		SendUnauthorizedError(c, de.Message)
	case domain.KindForbidden:
		SendError(c, http.StatusForbidden, "FORBIDDEN", []response.ValidationError{
			{Field: "resource", Message: de.Message},
		})
	case domain.KindConflict:
		SendError(c, http.StatusConflict, "CONFLICT", []response.ValidationError{
			{Field: "resource", Message: de.Message},
		})
	default:
		logInternal(c, logger, err)
		SendInternalError(c, "An unexpected error occurred")
	}
}

func logInternal(c *gin.Context, logger *config.LokiLogger, err error) {
	if logger == nil {
		return
	}

	logger.ErrorWithTrace(c.Request.Context(), "Request failed",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
}

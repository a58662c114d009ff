package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/pkg/errors"
)

// writeError maps service errors onto HTTP responses
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var validation *errors.ErrValidation
	var notFound *errors.ErrNotFound
	var conflict *errors.ErrConflict
	var external *errors.ErrExternal

	switch {
	case stderrors.As(err, &validation):
		body := gin.H{"error": validation.Message}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case stderrors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case stderrors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "retryable": true})
	case stderrors.As(err, &external):
		status := http.StatusBadGateway
		if external.Retryable {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":     external.Service + " service unavailable",
			"details":   external.Error(),
			"retryable": external.Retryable,
		})
	default:
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// errorCode classifies an error for per-item batch results
func errorCode(err error) string {
	switch {
	case errors.IsValidation(err):
		return "validation"
	case errors.IsNotFound(err):
		return "not_found"
	case errors.IsConflict(err):
		return "conflict"
	default:
		return "internal"
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Package respond writes the JSON envelope shared by every endpoint:
// {"ok": true, ...} on success and {"ok": false, "error", "code", "details"}
// on failure.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/logger"
	"github.com/duet-robotics/drc-backend/internal/media"
)

const (
	CodeInvalid        = "validation_failed"
	CodeBadRequest     = "bad_request"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeTooLarge       = "file_too_large"
	CodeUnsupported    = "unsupported_media_type"
	CodeUpload         = "upload_failed"
	CodePartialReorder = "reorder_partial_failure"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal_error"
)

// Fail writes a failure envelope with an explicit status.
func Fail(c *gin.Context, status int, code, msg string, details any) {
	body := gin.H{"ok": false, "error": msg, "code": code}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest reports a malformed request that never reached the store.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, CodeBadRequest, msg, nil)
}

// Error maps err to a status and envelope. Unexpected errors are logged
// with the request id and hidden from the client.
func Error(c *gin.Context, log *zap.Logger, err error) {
	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		ue *media.UploadError
		pf *domain.ReorderPartialFailure
		mb *http.MaxBytesError
	)

	switch {
	case errors.As(err, &ve):
		Fail(c, http.StatusBadRequest, CodeInvalid, "validation failed", ve.Fields)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownCollection):
		Fail(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.As(err, &ce):
		Fail(c, http.StatusConflict, CodeConflict, ce.Message, gin.H{ce.Field: ce.Message})
	case errors.As(err, &mb):
		Fail(c, http.StatusRequestEntityTooLarge, CodeTooLarge, "request body too large", nil)
	case errors.As(err, &ue):
		switch ue.Reason {
		case media.ReasonTooLarge:
			Fail(c, http.StatusRequestEntityTooLarge, CodeTooLarge, ue.Error(), nil)
		case media.ReasonUnsupported:
			Fail(c, http.StatusUnsupportedMediaType, CodeUnsupported, ue.Error(), nil)
		case media.ReasonEmpty:
			Fail(c, http.StatusBadRequest, CodeInvalid, ue.Error(), gin.H{"file": "is empty"})
		default:
			logger.For(c.Request.Context(), log).Error("upload failed", zap.Error(err))
			Fail(c, http.StatusBadGateway, CodeUpload, "image host unavailable", nil)
		}
	case errors.As(err, &pf):
		logger.For(c.Request.Context(), log).Error("reorder partially applied", zap.Error(err))
		Fail(c, http.StatusInternalServerError, CodePartialReorder, "reorder was only partially applied", gin.H{
			"applied": pf.Applied,
			"total":   pf.Total,
			"failed":  pf.Failed,
		})
	default:
		logger.For(c.Request.Context(), log).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		Fail(c, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	}
}

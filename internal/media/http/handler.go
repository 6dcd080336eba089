// Package http serves direct image uploads for the admin UI.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/api/http/respond"
	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/media"
)

type Binder interface {
	UploadAndBind(ctx context.Context, f media.File, folder string) (media.Image, error)
	Release(ctx context.Context, ref string) error
	MaxBytes() int64
}

type Handler struct {
	binder Binder
	log    *zap.Logger
}

func New(binder Binder, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{binder: binder, log: log}
}

// Register attaches the upload routes to rg.
func (h *Handler) Register(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	g := rg.Group("/uploads", mw...)
	g.POST("", h.upload)
	g.DELETE("", h.release)
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.binder.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		var mb *http.MaxBytesError
		if errors.As(err, &mb) {
			respond.Error(c, h.log, err)
			return
		}
		respond.Error(c, h.log, &domain.ValidationError{Fields: domain.FieldErrors{"file": "is required"}})
		return
	}
	if fh.Size > limit {
		respond.Error(c, h.log, &media.UploadError{Reason: media.ReasonTooLarge})
		return
	}

	f, err := fh.Open()
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	img, err := h.binder.UploadAndBind(c.Request.Context(), media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, c.PostForm("folder"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	img.Alt = strings.TrimSpace(c.PostForm("alt"))

	c.JSON(http.StatusCreated, gin.H{"ok": true, "item": img})
}

type releaseReq struct {
	PublicID string `json:"publicId" binding:"required"`
}

func (h *Handler) release(c *gin.Context) {
	var req releaseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, h.log, &domain.ValidationError{Fields: domain.FieldErrors{"publicId": "is required"}})
		return
	}
	if err := h.binder.Release(c.Request.Context(), req.PublicID); err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

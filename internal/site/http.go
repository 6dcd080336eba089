package site

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/api/http/respond"
)

type Handler struct {
	view *View
	log  *zap.Logger
}

// Register attaches the public read routes to rg.
func Register(rg *gin.RouterGroup, view *View, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{view: view, log: log}

	rg.GET("/site", h.page)
	rg.GET("/collections/:collection", h.section)
	rg.GET("/blog/:slug", h.blogPost)
}

func (h *Handler) page(c *gin.Context) {
	page, err := h.view.Page(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=30")
	c.JSON(http.StatusOK, gin.H{"ok": true, "sections": page})
}

func (h *Handler) section(c *gin.Context) {
	items, err := h.view.Section(c.Request.Context(), c.Param("collection"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=30")
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": items})
}

func (h *Handler) blogPost(c *gin.Context) {
	post, err := h.view.BlogBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "item": post})
}

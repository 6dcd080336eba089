package http

import "github.com/gin-gonic/gin"

// Register attaches the admin collection routes to rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/collections", h.schemas)

	g := rg.Group("/collections/:collection")
	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/reorder", h.reorder)
	g.POST("/move", h.move)
	g.POST("/form", h.submitForm)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

package chat

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/api/http/respond"
	"github.com/duet-robotics/drc-backend/internal/logger"
)

const (
	// FallbackAnswer is shown whenever the model cannot be reached.
	FallbackAnswer = "The AI assistant is currently recharging its circuits. Please try again later!"
	emptyAnswer    = "I'm sorry, I couldn't process that request right now."
	maxPromptRunes = 2000
)

type Handler struct {
	assistant Assistant
	log       *zap.Logger
	timeout   time.Duration
}

func NewHandler(assistant Assistant, log *zap.Logger, timeout time.Duration) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{assistant: assistant, log: log, timeout: timeout}
}

// Register attaches POST /chat; mw typically carries the rate limiter.
func (h *Handler) Register(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	rg.POST("/chat", append(mw, h.ask)...)
}

type askReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalid, "validation failed", gin.H{"message": "is required"})
		return
	}
	if utf8.RuneCountInString(req.Message) > maxPromptRunes {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalid, "validation failed", gin.H{"message": "must be at most 2000 characters"})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	answer, err := h.assistant.Ask(ctx, strings.TrimSpace(req.Message))
	if err != nil {
		logger.For(ctx, h.log).Warn("chat assistant failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true, "answer": FallbackAnswer, "fallback": true})
		return
	}
	if answer == "" {
		answer = emptyAnswer
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "answer": answer})
}

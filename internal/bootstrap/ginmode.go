package bootstrap

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GinModeFor maps APP_ENV to a gin mode. Production and staging run in
// release mode; anything unrecognised gets the debug route dump.
func GinModeFor(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "staging":
		return gin.ReleaseMode
	case "test", "ci":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// SetGinMode applies GinModeFor(env) and returns the chosen mode.
func SetGinMode(env string) string {
	mode := GinModeFor(env)
	gin.SetMode(mode)
	return mode
}

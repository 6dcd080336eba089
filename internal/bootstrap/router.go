package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/duet-robotics/drc-backend/internal/api/http"
	"github.com/duet-robotics/drc-backend/internal/api/http/middleware"
	"github.com/duet-robotics/drc-backend/internal/auth"
	authmw "github.com/duet-robotics/drc-backend/internal/auth/middleware"
	"github.com/duet-robotics/drc-backend/internal/chat"
	"github.com/duet-robotics/drc-backend/internal/collection/form"
	collectionhttp "github.com/duet-robotics/drc-backend/internal/collection/http"
	mediahttp "github.com/duet-robotics/drc-backend/internal/media/http"
	"github.com/duet-robotics/drc-backend/internal/site"
)

type RouterDeps struct {
	App *App
	// Verifier checks Firebase ID tokens; nil selects the development user.
	Verifier  authmw.TokenVerifier
	Assistant chat.Assistant
}

func BuildRouter(dep RouterDeps) (*gin.Engine, error) {
	app := dep.App
	cfg := app.Config
	log := app.Log

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Site.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "If-Match", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"ETag", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(cfg.App.Name, cfg.App.Version, app.Checks)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	view := site.NewView(app.Stores, app.Cache, cfg.Site.CacheTTL, nil, log)
	site.Register(api.Group("/public"), view, log)

	chatLimit := middleware.NewRateLimiter(cfg.Chat.RatePerMin, cfg.Chat.RatePerMin)
	chat.NewHandler(dep.Assistant, log, cfg.Chat.Timeout).Register(api, chatLimit.Middleware())

	admin := api.Group("/admin")
	if dep.Verifier != nil {
		admin.Use(authmw.FirebaseAuthMiddleware(dep.Verifier, log))
	} else {
		log.Warn("admin API is running without token verification", zap.String("user", "dev-admin"))
		admin.Use(auth.DevUser())
	}
	admin.Use(authmw.RequireAdmin(cfg.Auth.AdminEmails))

	after, err := form.ParseAfterUpdate(cfg.Admin.AfterUpdate)
	if err != nil {
		return nil, err
	}
	collectionhttp.New(app.Stores, app.Binder, log,
		collectionhttp.WithMaxUpload(app.Binder.MaxBytes()),
		collectionhttp.WithAfterUpdate(after),
	).Register(admin)

	uploadLimit := middleware.NewRateLimiter(cfg.Chat.UploadBurst*6, cfg.Chat.UploadBurst)
	mediahttp.New(app.Binder, log).Register(admin, uploadLimit.Middleware())

	return r, nil
}

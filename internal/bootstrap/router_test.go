package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/config"
)

type stubAssistant struct{}

func (stubAssistant) Ask(context.Context, string) (string, error) { return "", errors.New("offline") }

type rejectAll struct{}

func (rejectAll) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return nil, errors.New("bad token")
}

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "drc-backend"
	cfg.App.Version = "test"
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Store.Driver = "memory"
	cfg.Media.Driver = "memory"
	cfg.Media.MaxUploadBytes = 1 << 20
	cfg.Media.DefaultFolder = "drc"
	cfg.Site.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Site.CacheTTL = time.Minute
	cfg.Chat.RatePerMin = 10
	cfg.Chat.UploadBurst = 5
	cfg.Chat.Timeout = time.Second
	return cfg
}

func newTestRouter(t *testing.T, deps RouterDeps) *gin.Engine {
	return newTestRouterWith(t, memoryConfig(), deps)
}

func newTestRouterWith(t *testing.T, cfg *config.Config, deps RouterDeps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	deps.App = app
	deps.Assistant = stubAssistant{}
	r, err := BuildRouter(deps)
	require.NoError(t, err)
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestOpen_MemoryDrivers(t *testing.T) {
	app, err := Open(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Redis)
	assert.Empty(t, app.Checks)
	assert.Len(t, app.Registry.All(), 15)
	assert.NotNil(t, app.Sweeper())
}

func TestOpen_UnsupportedStore(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Driver = "sqlite"

	_, err := Open(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestBuildRouter_PublicAndHealth(t *testing.T) {
	r := newTestRouter(t, RouterDeps{})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/public/site").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/public/collections/faq").Code)
}

func TestBuildRouter_DevUserReachesAdmin(t *testing.T) {
	r := newTestRouter(t, RouterDeps{})

	w := serve(r, http.MethodGet, "/api/v1/admin/collections")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestBuildRouter_AdminRequiresToken(t *testing.T) {
	r := newTestRouter(t, RouterDeps{Verifier: rejectAll{}})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/admin/collections").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/collections", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// public routes stay open
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/public/site").Code)
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(t, RouterDeps{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/site", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func submitFAQForm(t *testing.T, r *gin.Engine, fields map[string]string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/collections/faq/form", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestBuildRouter_AfterUpdateFromConfig(t *testing.T) {
	tests := []struct {
		after string
		want  string
	}{
		{"create", "create"},
		{"edit", "edit"},
	}

	for _, tt := range tests {
		t.Run(tt.after, func(t *testing.T) {
			cfg := memoryConfig()
			cfg.Admin.AfterUpdate = tt.after
			r := newTestRouterWith(t, cfg, RouterDeps{})

			code, body := submitFAQForm(t, r, map[string]string{"data": `{"question":"q","answer":"a"}`})
			require.Equal(t, http.StatusCreated, code, body)
			id := body["item"].(map[string]any)["id"].(string)

			code, body = submitFAQForm(t, r, map[string]string{"id": id, "data": `{"question":"q2","answer":"a"}`})
			require.Equal(t, http.StatusOK, code, body)
			assert.Equal(t, tt.want, body["mode"])
		})
	}
}

func TestBuildRouter_RejectsUnknownAfterUpdate(t *testing.T) {
	cfg := memoryConfig()
	cfg.Admin.AfterUpdate = "list"
	app, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	_, err = BuildRouter(RouterDeps{App: app, Assistant: stubAssistant{}})
	assert.ErrorContains(t, err, "list")
}

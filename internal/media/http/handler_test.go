package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duet-robotics/drc-backend/internal/media"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newRouter(host *media.MemoryHost, opts ...media.Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(media.NewBinder(host, nil, opts...), nil).Register(r.Group("/admin"))
	return r
}

func uploadReq(t *testing.T, data []byte, folder string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if folder != "" {
		require.NoError(t, w.WriteField("folder", folder))
	}
	if data != nil {
		fw, err := w.CreateFormFile("file", "pic.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	host := media.NewMemoryHost()
	rr := httptest.NewRecorder()
	newRouter(host).ServeHTTP(rr, uploadReq(t, pngHeader, "events"))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var body struct {
		Item media.Image `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "events/img_1", body.Item.PublicID)
	assert.True(t, host.Has("events/img_1"))
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		status int
	}{
		{"missing file", nil, http.StatusBadRequest},
		{"not an image", []byte("plain text body"), http.StatusUnsupportedMediaType},
		{"too large", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 2048)...), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := media.NewMemoryHost()
			rr := httptest.NewRecorder()
			newRouter(host, media.WithMaxBytes(1024)).ServeHTTP(rr, uploadReq(t, tt.data, ""))

			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, 0, host.Uploads())
		})
	}
}

func TestRelease(t *testing.T) {
	host := media.NewMemoryHost()
	host.Put("drc/x")
	r := newRouter(host)

	for range 2 {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/uploads", strings.NewReader(`{"publicId":"drc/x"}`)))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.False(t, host.Has("drc/x"))

	host.FailDeletes = errors.New("down")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/uploads", strings.NewReader(`{"publicId":"drc/y"}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/uploads", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

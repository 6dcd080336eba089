package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/duet-robotics/drc-backend/internal/api/http/respond"
	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/form"
	"github.com/duet-robotics/drc-backend/internal/collection/reorder"
	"github.com/duet-robotics/drc-backend/internal/collection/service"
	"github.com/duet-robotics/drc-backend/internal/media"
)

func (h *Handler) store(c *gin.Context) (*service.Store, bool) {
	s, err := h.stores.Get(c.Param("collection"))
	if err != nil {
		respond.Error(c, h.log, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) controller(s *service.Store) *form.Controller {
	return form.NewController(s, h.images, h.log, form.WithAfterUpdate(h.after))
}

func (h *Handler) schemas(c *gin.Context) {
	all := h.stores.Registry().All()
	items := make([]schemaInfo, len(all))
	for i, s := range all {
		items[i] = describe(s)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": items})
}

func (h *Handler) list(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	items, err := s.GetAll(c.Request.Context(), domain.ViewAdmin)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": documents(s.Schema(), items)})
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	e, err := s.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.Header("ETag", etag(e.Version))
	c.JSON(http.StatusOK, gin.H{"ok": true, "item": s.Schema().Document(e)})
}

func (h *Handler) create(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	body, ok := bindObject(c)
	if !ok {
		return
	}
	delete(body, "version")

	sess := form.NewSession()
	res, err := h.controller(s).Submit(c.Request.Context(), sess, form.Submission{Fields: body})
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.Header("ETag", etag(res.Entity.Version))
	c.JSON(http.StatusCreated, gin.H{"ok": true, "item": s.Schema().Document(res.Entity)})
}

func (h *Handler) update(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	body, ok := bindObject(c)
	if !ok {
		return
	}

	version, err := expectedVersion(c.GetHeader("If-Match"), body["version"])
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalid, "validation failed", gin.H{"version": err.Error()})
		return
	}
	delete(body, "version")

	ctrl := h.controller(s)
	sess, err := ctrl.SessionFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	res, err := ctrl.Submit(c.Request.Context(), sess, form.Submission{Fields: body, ExpectedVersion: version})
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.Header("ETag", etag(res.Entity.Version))
	c.JSON(http.StatusOK, gin.H{"ok": true, "item": s.Schema().Document(res.Entity)})
}

func (h *Handler) delete(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	if err := s.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) reorder(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req reorderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid body")
		return
	}
	if err := s.Reorder(c.Request.Context(), req.Updates); err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.respondList(c, s)
}

func (h *Handler) move(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var req moveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid body")
		return
	}
	dir, err := reorder.ParseDirection(strings.ToLower(req.Direction))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalid, "validation failed", gin.H{"direction": err.Error()})
		return
	}

	items, err := s.Move(c.Request.Context(), req.ID, dir)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": documents(s.Schema(), items)})
}

func (h *Handler) respondList(c *gin.Context, s *service.Store) {
	items, err := s.GetAll(c.Request.Context(), domain.ViewAdmin)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "items": documents(s.Schema(), items)})
}

// submitForm handles the admin form: multipart fields "data" (JSON object),
// "id" and "version" for edits, "imageSource" with "file", "link" and "alt".
func (h *Handler) submitForm(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	// Room for the other form parts next to the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)

	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		var mb *http.MaxBytesError
		if errors.As(err, &mb) {
			respond.Error(c, h.log, err)
			return
		}
		respond.BadRequest(c, "body must be multipart/form-data")
		return
	}

	fields := map[string]any{}
	if raw := c.PostForm("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
			respond.Fail(c, http.StatusBadRequest, respond.CodeInvalid, "validation failed", gin.H{"data": "must be a JSON object"})
			return
		}
	}

	source, err := media.ParseSource(c.PostForm("imageSource"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalid, "validation failed", gin.H{"imageSource": err.Error()})
		return
	}
	version, err := expectedVersion(c.GetHeader("If-Match"), c.PostForm("version"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalid, "validation failed", gin.H{"version": err.Error()})
		return
	}

	sub := form.Submission{
		Fields:          fields,
		Source:          source,
		Link:            strings.TrimSpace(c.PostForm("link")),
		Alt:             strings.TrimSpace(c.PostForm("alt")),
		ExpectedVersion: version,
	}
	if source == media.SourceUpload {
		f, err := h.readFile(c)
		if err != nil {
			respond.Error(c, h.log, err)
			return
		}
		sub.File = f
	}

	ctrl := h.controller(s)
	sess, err := ctrl.SessionFor(c.Request.Context(), strings.TrimSpace(c.PostForm("id")))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	mode := sess.Mode()

	res, err := ctrl.Submit(c.Request.Context(), sess, sub)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	status := http.StatusOK
	if mode == form.ModeCreate {
		status = http.StatusCreated
	}
	body := gin.H{"ok": true, "item": s.Schema().Document(res.Entity), "mode": sess.Mode().String()}
	if res.ReleaseErr != nil {
		body["warning"] = "previous image could not be released and was queued for cleanup"
	}
	c.Header("ETag", etag(res.Entity.Version))
	c.JSON(status, body)
}

func (h *Handler) readFile(c *gin.Context) (*media.File, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, &domain.ValidationError{Fields: domain.FieldErrors{"file": "is required"}}
	}
	if fh.Size > h.maxUpload {
		return nil, &media.UploadError{Reason: media.ReasonTooLarge, Detail: strconv.FormatInt(fh.Size, 10) + " bytes"}
	}
	return readMultipartFile(fh, h.maxUpload)
}

func readMultipartFile(fh *multipart.FileHeader, limit int64) (*media.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	return &media.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func bindObject(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		respond.BadRequest(c, "body must be a JSON object")
		return nil, false
	}
	return body, true
}

// expectedVersion reads the optimistic concurrency token from an If-Match
// header ("3", W/"3") or a version field. Neither means last write wins.
func expectedVersion(ifMatch string, field any) (int64, error) {
	if v := strings.TrimSpace(ifMatch); v != "" && v != "*" {
		v = strings.Trim(strings.TrimPrefix(v, "W/"), `"`)
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, errors.New("If-Match must be a version number")
		}
		return n, nil
	}

	switch t := field.(type) {
	case nil:
		return 0, nil
	case float64:
		if t < 0 || t != float64(int64(t)) {
			return 0, errors.New("must be a non-negative integer")
		}
		return int64(t), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil || n < 0 {
			return 0, errors.New("must be a non-negative integer")
		}
		return n, nil
	}
	return 0, errors.New("must be a non-negative integer")
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}

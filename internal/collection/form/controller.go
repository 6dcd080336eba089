package form

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/service"
	"github.com/duet-robotics/drc-backend/internal/logger"
	"github.com/duet-robotics/drc-backend/internal/media"
	"github.com/duet-robotics/drc-backend/internal/orphans"
)

// Images is the part of the image binder a form submission uses.
type Images interface {
	UploadAndBind(ctx context.Context, f media.File, folder string) (media.Image, error)
	BindExternalLink(url, alt string) media.Image
	Release(ctx context.Context, ref string) error
}

// Submission is one press of the form's save button.
type Submission struct {
	Fields map[string]any
	// Source selects the new image; SourceKeep leaves it as is.
	Source media.Source
	File   *media.File
	Link   string
	Alt    string
	// ExpectedVersion enables optimistic concurrency on update; 0 disables it.
	ExpectedVersion int64
}

// Result reports which steps of a submission took effect. On error the
// caller can still see whether an upload happened before the save failed.
type Result struct {
	Entity      *domain.Entity
	Created     bool
	Uploaded    *media.Image
	Saved       bool
	ReleasedRef string
	ReleaseErr  error
}

type Controller struct {
	store  *service.Store
	images Images
	log    *zap.Logger
	after  AfterUpdate
}

type Option func(*Controller)

func WithAfterUpdate(a AfterUpdate) Option {
	return func(c *Controller) { c.after = a }
}

func NewController(store *service.Store, images Images, log *zap.Logger, opts ...Option) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{store: store, images: images, log: log}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SessionFor returns a create session for an empty id, otherwise an edit
// session hydrated from the stored entity.
func (c *Controller) SessionFor(ctx context.Context, id string) (*Session, error) {
	sess := NewSession()
	if id == "" {
		return sess, nil
	}
	e, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Edit(e)
	return sess, nil
}

// Submit saves sub in the session's mode. A new upload happens before the
// save; a replaced bound image is released only after the update succeeded,
// and a failed release never fails the submission.
func (c *Controller) Submit(ctx context.Context, sess *Session, sub Submission) (Result, error) {
	var res Result
	schema := c.store.Schema()
	log := logger.For(ctx, c.log).With(zap.String("collection", schema.Name), zap.String("mode", sess.Mode().String()))

	fields := maps.Clone(sub.Fields)
	if fields == nil {
		fields = map[string]any{}
	}

	if err := c.resolveImage(ctx, schema, fields, sub, &res); err != nil {
		return res, err
	}

	if sess.Mode() == ModeCreate {
		e, err := c.store.Create(ctx, fields)
		if err != nil {
			c.orphanUpload(ctx, log, &res, err)
			return res, err
		}
		res.Entity, res.Created, res.Saved = e, true, true
		sess.Cancel()
		return res, nil
	}

	prev, err := c.store.GetByID(ctx, sess.ID())
	if err != nil {
		c.orphanUpload(ctx, log, &res, err)
		return res, err
	}
	oldRef := prev.Image.Ref()

	e, err := c.store.Update(ctx, sess.ID(), fields, sub.ExpectedVersion)
	if err != nil {
		c.orphanUpload(ctx, log, &res, err)
		return res, err
	}
	res.Entity, res.Saved = e, true

	if oldRef != "" && e.Image.Ref() != oldRef {
		if relErr := c.images.Release(ctx, oldRef); relErr != nil {
			log.Warn("replaced image not released", zap.String("public_id", oldRef), zap.Error(relErr))
			c.store.RecordOrphan(ctx, oldRef, orphans.ReasonReleaseFailed, relErr)
			res.ReleaseErr = relErr
		} else {
			res.ReleasedRef = oldRef
		}
	}

	if c.after == StayInEdit {
		sess.Edit(e)
	} else {
		sess.Cancel()
	}
	return res, nil
}

func (c *Controller) resolveImage(ctx context.Context, schema *domain.Schema, fields map[string]any, sub Submission, res *Result) error {
	if sub.Source == media.SourceKeep {
		return nil
	}
	if !schema.HasImage() {
		return &domain.ValidationError{Fields: domain.FieldErrors{"imageSource": schema.Name + " has no image"}}
	}
	key := schema.ImageKey

	switch sub.Source {
	case media.SourceUpload:
		if sub.File == nil {
			return &domain.ValidationError{Fields: domain.FieldErrors{"file": "is required"}}
		}
		img, err := c.images.UploadAndBind(ctx, *sub.File, schema.Folder())
		if err != nil {
			return err
		}
		img.Alt = sub.Alt
		res.Uploaded = &img
		fields[key] = img

	case media.SourceLink:
		if sub.Link == "" {
			return &domain.ValidationError{Fields: domain.FieldErrors{"link": "is required"}}
		}
		fields[key] = c.images.BindExternalLink(sub.Link, sub.Alt)

	case media.SourceGenerated:
		// A cleared image is replaced by the name placeholder on save.
		fields[key] = nil

	default:
		return fmt.Errorf("unknown image source %q", sub.Source)
	}
	return nil
}

func (c *Controller) orphanUpload(ctx context.Context, log *zap.Logger, res *Result, cause error) {
	if res.Uploaded == nil {
		return
	}
	log.Warn("save failed after upload", zap.String("public_id", res.Uploaded.PublicID), zap.Error(cause))
	c.store.RecordOrphan(ctx, res.Uploaded.PublicID, orphans.ReasonSaveFailed, cause)
}

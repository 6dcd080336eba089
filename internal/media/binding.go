package media

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/logger"
)

const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

// Host is a third-party media host.
type Host interface {
	Upload(ctx context.Context, in UploadInput) (Asset, error)
	// Delete returns ErrAssetNotFound for unknown references.
	Delete(ctx context.Context, ref string) error
}

type UploadInput struct {
	Folder      string
	Name        string
	ContentType string
	Data        []byte
}

type Asset struct {
	URL      string
	PublicID string
}

var folderRe = regexp.MustCompile(`[^a-zA-Z0-9_\-/]+`)

// Binder turns uploads, links and names into Image values and releases
// host assets that are no longer referenced.
type Binder struct {
	host          Host
	log           *zap.Logger
	maxBytes      int64
	defaultFolder string
	style         PlaceholderStyle
}

type Option func(*Binder)

func WithMaxBytes(n int64) Option {
	return func(b *Binder) {
		if n > 0 {
			b.maxBytes = n
		}
	}
}

func WithDefaultFolder(folder string) Option {
	return func(b *Binder) {
		if f := cleanFolder(folder); f != "" {
			b.defaultFolder = f
		}
	}
}

func WithPlaceholderStyle(s PlaceholderStyle) Option {
	return func(b *Binder) { b.style = s }
}

func NewBinder(host Host, log *zap.Logger, opts ...Option) *Binder {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Binder{
		host:          host,
		log:           log,
		maxBytes:      DefaultMaxUploadBytes,
		defaultFolder: "drc",
		style:         DefaultPlaceholderStyle,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Binder) MaxBytes() int64 { return b.maxBytes }

// Check validates size and content type and returns the sniffed MIME type.
// It never touches the network.
func (b *Binder) Check(f File) (string, error) {
	if len(f.Data) == 0 {
		return "", &UploadError{Reason: ReasonEmpty, Detail: "file is empty"}
	}
	if int64(len(f.Data)) > b.maxBytes {
		return "", &UploadError{
			Reason: ReasonTooLarge,
			Detail: fmt.Sprintf("file is %d bytes, limit is %d", len(f.Data), b.maxBytes),
		}
	}

	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return "", &UploadError{Reason: ReasonUnsupported, Detail: "declared type " + declared}
	}

	sniffed := mimetype.Detect(f.Data)
	if !strings.HasPrefix(sniffed.String(), "image/") {
		return "", &UploadError{Reason: ReasonUnsupported, Detail: "detected type " + sniffed.String()}
	}
	return sniffed.String(), nil
}

// UploadAndBind validates f, stores it with the host and returns a bound
// Image. Validation failures never reach the host.
func (b *Binder) UploadAndBind(ctx context.Context, f File, folder string) (Image, error) {
	ct, err := b.Check(f)
	if err != nil {
		return Image{}, err
	}

	if folder = cleanFolder(folder); folder == "" {
		folder = b.defaultFolder
	}

	asset, err := b.host.Upload(ctx, UploadInput{
		Folder:      folder,
		Name:        f.Name,
		ContentType: ct,
		Data:        f.Data,
	})
	if err != nil {
		return Image{}, &UploadError{Reason: ReasonTransport, Err: err}
	}

	logger.For(ctx, b.log).Info("media uploaded",
		zap.String("public_id", asset.PublicID),
		zap.String("folder", folder),
		zap.Int("bytes", len(f.Data)),
	)
	return Image{URL: asset.URL, PublicID: asset.PublicID}, nil
}

// BindExternalLink takes the URL verbatim. Nothing is fetched.
func (b *Binder) BindExternalLink(url, alt string) Image {
	return Image{URL: url, Alt: alt}
}

func (b *Binder) GeneratePlaceholder(name string) Image {
	return Image{URL: PlaceholderURL(name, b.style), Alt: strings.TrimSpace(name)}
}

// IsPlaceholder reports whether u is one of this binder's generated avatars.
func (b *Binder) IsPlaceholder(u string) bool {
	return IsPlaceholderURL(u, b.style)
}

// Release deletes the asset behind ref. Empty and already-deleted
// references succeed.
func (b *Binder) Release(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	err := b.host.Delete(ctx, ref)
	if err != nil && !errors.Is(err, ErrAssetNotFound) {
		return fmt.Errorf("release %s: %w", ref, err)
	}
	logger.For(ctx, b.log).Info("media released", zap.String("public_id", ref))
	return nil
}

func cleanFolder(folder string) string {
	folder = folderRe.ReplaceAllString(strings.TrimSpace(folder), "")
	return strings.Trim(folder, "/")
}

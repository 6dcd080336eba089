package media

import "fmt"

// Image is the image slot embedded in content entities. PublicID is the
// media host reference; it is empty for external links and placeholders.
type Image struct {
	URL      string `json:"url" bson:"url"`
	Alt      string `json:"alt,omitempty" bson:"alt,omitempty"`
	PublicID string `json:"publicId,omitempty" bson:"publicId,omitempty"`
}

// Bound reports whether the image is owned by the media host and therefore
// has to be released when it is replaced or its entity is deleted.
func (i *Image) Bound() bool {
	return i != nil && i.PublicID != ""
}

// Ref returns the external reference, or "" for nil and unbound images.
func (i *Image) Ref() string {
	if i == nil {
		return ""
	}
	return i.PublicID
}

// Source tells the form controller where a new image comes from.
type Source string

const (
	SourceKeep      Source = ""
	SourceUpload    Source = "upload"
	SourceLink      Source = "link"
	SourceGenerated Source = "generated"
)

func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceKeep, SourceUpload, SourceLink, SourceGenerated:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown image source %q", s)
}

// File is an upload candidate as received from the admin UI.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

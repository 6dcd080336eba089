package media

import (
	"errors"
	"fmt"
)

// ErrAssetNotFound is returned by hosts when the reference is unknown.
// Release treats it as success.
var ErrAssetNotFound = errors.New("asset not found")

type UploadReason string

const (
	ReasonEmpty       UploadReason = "empty"
	ReasonTooLarge    UploadReason = "too_large"
	ReasonUnsupported UploadReason = "unsupported_type"
	ReasonTransport   UploadReason = "transport"
)

// UploadError is returned by UploadAndBind. Validation reasons are produced
// before any bytes leave the process.
type UploadError struct {
	Reason UploadReason
	Detail string
	Err    error
}

func (e *UploadError) Error() string {
	msg := "upload failed: " + string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UploadError) Unwrap() error { return e.Err }

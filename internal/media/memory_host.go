package media

import (
	"context"
	"fmt"
	"path"
	"sync"
)

// MemoryHost keeps assets in process. Used for local development and tests.
type MemoryHost struct {
	mu      sync.Mutex
	seq     int
	assets  map[string]UploadInput
	uploads int
	deletes []string
	// FailUploads makes Upload fail with this error when set.
	FailUploads error
	// FailDeletes makes Delete fail with this error when set.
	FailDeletes error
}

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{assets: map[string]UploadInput{}}
}

func (h *MemoryHost) Upload(_ context.Context, in UploadInput) (Asset, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.uploads++
	if h.FailUploads != nil {
		return Asset{}, h.FailUploads
	}

	h.seq++
	ref := path.Join(in.Folder, fmt.Sprintf("img_%d", h.seq))
	h.assets[ref] = in
	return Asset{URL: "memory://" + ref, PublicID: ref}, nil
}

func (h *MemoryHost) Delete(_ context.Context, ref string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deletes = append(h.deletes, ref)
	if h.FailDeletes != nil {
		return h.FailDeletes
	}
	if _, ok := h.assets[ref]; !ok {
		return ErrAssetNotFound
	}
	delete(h.assets, ref)
	return nil
}

// Put registers an asset under a fixed reference.
func (h *MemoryHost) Put(ref string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assets[ref] = UploadInput{}
}

func (h *MemoryHost) Has(ref string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.assets[ref]
	return ok
}

func (h *MemoryHost) Uploads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploads
}

// Deletes lists every reference passed to Delete, in call order.
func (h *MemoryHost) Deletes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.deletes...)
}

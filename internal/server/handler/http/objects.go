package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/errs"
	"github.com/atinyakov/SecureNotes/internal/middleware"
	"github.com/atinyakov/SecureNotes/internal/models"
)

// maxBlobBytes bounds request bodies independently of the quota.
const maxBlobBytes = 8 << 20

// ObjectService defines the storage operations required by ObjectHandler.
type ObjectService interface {
	List(ctx context.Context, userID string) ([]models.ObjectInfo, error)
	Get(ctx context.Context, userID, path string) (models.Object, error)
	Put(ctx context.Context, userID, path string, data []byte) error
	Delete(ctx context.Context, userID, path string) error
	GetMetadata(ctx context.Context, userID string) ([]byte, error)
	PutMetadata(ctx context.Context, userID string, data []byte) error
	Quota(ctx context.Context, userID string) (models.Quota, error)
}

// ObjectHandler serves the per-user object store. Bodies carry opaque,
// client-encrypted bytes.
type ObjectHandler struct {
	Service ObjectService
	Log     *zap.Logger
}

// Blob is the JSON envelope of an object or of the metadata blob. Data is
// base64-encoded on the wire.
type Blob struct {
	Data      []byte     `json:"data"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// List handles GET /api/objects.
func (h *ObjectHandler) List(w http.ResponseWriter, r *http.Request) {
	objects, err := h.Service.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list objects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.ObjectInfo{"objects": objects})
}

// Get handles GET /api/objects/*.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	obj, err := h.Service.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), objectPath(r))
	if err != nil {
		h.fail(w, "get object", err)
		return
	}
	writeJSON(w, http.StatusOK, Blob{Data: obj.Data, UpdatedAt: &obj.UpdatedAt})
}

// Put handles PUT /api/objects/*.
func (h *ObjectHandler) Put(w http.ResponseWriter, r *http.Request) {
	blob, ok := decodeBlob(w, r)
	if !ok {
		return
	}
	err := h.Service.Put(r.Context(), middleware.GetUserIDFromContext(r.Context()), objectPath(r), blob.Data)
	if err != nil {
		h.fail(w, "put object", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/objects/*.
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), objectPath(r))
	if err != nil {
		h.fail(w, "delete object", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMetadata handles GET /api/metadata. An account without metadata gets
// an empty blob.
func (h *ObjectHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	data, err := h.Service.GetMetadata(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, "get metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, Blob{Data: data})
}

// PutMetadata handles PUT /api/metadata.
func (h *ObjectHandler) PutMetadata(w http.ResponseWriter, r *http.Request) {
	blob, ok := decodeBlob(w, r)
	if !ok {
		return
	}
	if err := h.Service.PutMetadata(r.Context(), middleware.GetUserIDFromContext(r.Context()), blob.Data); err != nil {
		h.fail(w, "put metadata", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Quota handles GET /api/quota.
func (h *ObjectHandler) Quota(w http.ResponseWriter, r *http.Request) {
	q, err := h.Service.Quota(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, "quota", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// objectPath returns the unescaped object path of the request.
func objectPath(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if p, err := url.PathUnescape(raw); err == nil {
		return p
	}
	return raw
}

func decodeBlob(w http.ResponseWriter, r *http.Request) (Blob, bool) {
	var blob Blob
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBlobBytes)).Decode(&blob); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return Blob{}, false
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return Blob{}, false
	}
	return blob, true
}

// fail maps service errors to status codes.
func (h *ObjectHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrQuotaExceeded):
		http.Error(w, "storage quota exceeded", http.StatusRequestEntityTooLarge)
	case errors.Is(err, errs.ErrInvalidPath):
		http.Error(w, "invalid path", http.StatusBadRequest)
	default:
		if h.Log != nil {
			h.Log.Error(op+" failed", zap.Error(err))
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/SecureNotes/internal/errs"
	"github.com/atinyakov/SecureNotes/internal/middleware"
	"github.com/atinyakov/SecureNotes/internal/models"
)

type fakeObjectService struct {
	objects map[string][]byte
	meta    []byte
	putErr  error
	err     error

	gotUser string
}

func (f *fakeObjectService) List(ctx context.Context, userID string) ([]models.ObjectInfo, error) {
	f.gotUser = userID
	if f.err != nil {
		return nil, f.err
	}
	out := []models.ObjectInfo{}
	for p, d := range f.objects {
		out = append(out, models.ObjectInfo{Path: p, Size: int64(len(d))})
	}
	return out, nil
}

func (f *fakeObjectService) Get(ctx context.Context, userID, path string) (models.Object, error) {
	f.gotUser = userID
	d, ok := f.objects[path]
	if !ok {
		return models.Object{}, errs.ErrNotFound
	}
	return models.Object{Path: path, Data: d, UpdatedAt: time.Unix(0, 0).UTC()}, nil
}

func (f *fakeObjectService) Put(ctx context.Context, userID, path string, data []byte) error {
	f.gotUser = userID
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[path] = data
	return nil
}

func (f *fakeObjectService) Delete(ctx context.Context, userID, path string) error {
	if _, ok := f.objects[path]; !ok {
		return errs.ErrNotFound
	}
	delete(f.objects, path)
	return nil
}

func (f *fakeObjectService) GetMetadata(ctx context.Context, userID string) ([]byte, error) {
	return f.meta, f.err
}

func (f *fakeObjectService) PutMetadata(ctx context.Context, userID string, data []byte) error {
	f.meta = data
	return f.err
}

func (f *fakeObjectService) Quota(ctx context.Context, userID string) (models.Quota, error) {
	return models.Quota{UsedBytes: 3, QuotaBytes: 10}, f.err
}

// serve routes req through a chi router so that the wildcard is populated,
// with the user already authenticated.
func serve(h *ObjectHandler, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/objects", h.List)
	r.Get("/api/objects/*", h.Get)
	r.Put("/api/objects/*", h.Put)
	r.Delete("/api/objects/*", h.Delete)
	r.Get("/api/metadata", h.GetMetadata)
	r.Put("/api/metadata", h.PutMetadata)
	r.Get("/api/quota", h.Quota)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestObjectHandler_PutGetDelete(t *testing.T) {
	svc := &fakeObjectService{objects: map[string][]byte{}}
	h := &ObjectHandler{Service: svc}

	// "aGVsbG8=" is base64 for "hello".
	rec := serve(h, http.MethodPut, "/api/objects/notes/1.json", `{"data":"aGVsbG8="}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "hello", string(svc.objects["notes/1.json"]))
	assert.Equal(t, "u1", svc.gotUser)

	rec = serve(h, http.MethodGet, "/api/objects/notes/1.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":"aGVsbG8="`)
	assert.Contains(t, rec.Body.String(), `"updated_at"`)

	rec = serve(h, http.MethodGet, "/api/objects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":"notes/1.json"`)

	rec = serve(h, http.MethodDelete, "/api/objects/notes/1.json", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, http.MethodDelete, "/api/objects/notes/1.json", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodGet, "/api/objects/notes/1.json", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestObjectHandler_EscapedPath(t *testing.T) {
	svc := &fakeObjectService{objects: map[string][]byte{}}
	h := &ObjectHandler{Service: svc}

	rec := serve(h, http.MethodPut, "/api/objects/notes/a%20b.json", `{"data":"eA=="}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, svc.objects, "notes/a b.json")
}

func TestObjectHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		code int
	}{
		{"quota", errs.ErrQuotaExceeded, `{"data":"eA=="}`, http.StatusRequestEntityTooLarge},
		{"invalid path", errs.ErrInvalidPath, `{"data":"eA=="}`, http.StatusBadRequest},
		{"internal", errors.New("db down"), `{"data":"eA=="}`, http.StatusInternalServerError},
		{"bad body", nil, `nope`, http.StatusBadRequest},
		{"bad base64", nil, `{"data":"!!"}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := &ObjectHandler{Service: &fakeObjectService{objects: map[string][]byte{}, putErr: tc.err}}
			rec := serve(h, http.MethodPut, "/api/objects/a", tc.body)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestObjectHandler_BodyTooLarge(t *testing.T) {
	h := &ObjectHandler{Service: &fakeObjectService{objects: map[string][]byte{}}}
	body := `{"data":"` + strings.Repeat("A", maxBlobBytes+8) + `"}`
	rec := serve(h, http.MethodPut, "/api/objects/a", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestObjectHandler_MetadataAndQuota(t *testing.T) {
	svc := &fakeObjectService{objects: map[string][]byte{}}
	h := &ObjectHandler{Service: svc}

	rec := serve(h, http.MethodGet, "/api/metadata", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())

	rec = serve(h, http.MethodPut, "/api/metadata", `{"data":"bQ=="}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "m", string(svc.meta))

	rec = serve(h, http.MethodGet, "/api/quota", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"used_bytes":3,"quota_bytes":10,"unlimited":false}`, rec.Body.String())

	svc.err = errors.New("db down")
	for _, target := range []string{"/api/metadata", "/api/quota", "/api/objects"} {
		rec = serve(h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
	}
}

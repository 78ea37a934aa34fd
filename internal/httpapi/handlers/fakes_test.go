package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"mediahub/internal/config"
	"mediahub/internal/service"
	"mediahub/internal/storage"
	"mediahub/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// fakeStore is an in-memory record store enforcing the unique name at write
// time, like the real one.
type fakeStore struct {
	mu     sync.Mutex
	assets map[uuid.UUID]store.MediaAsset
}

func newFakeStore() *fakeStore {
	return &fakeStore{assets: make(map[uuid.UUID]store.MediaAsset)}
}

func (f *fakeStore) GetAssetByName(_ context.Context, name string) (store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.Name == name {
			return a, nil
		}
	}
	return store.MediaAsset{}, pgx.ErrNoRows
}

func (f *fakeStore) GetAssetByNameFold(_ context.Context, name string) (store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []store.MediaAsset
	for _, a := range f.assets {
		if strings.EqualFold(a.Name, name) {
			matches = append(matches, a)
		}
	}
	if len(matches) != 1 {
		return store.MediaAsset{}, pgx.ErrNoRows
	}
	return matches[0], nil
}

func (f *fakeStore) InsertAsset(_ context.Context, name string, fileName, objectKey, publicURL *string, section string) (store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.Name == name {
			return store.MediaAsset{}, store.ErrConflict
		}
	}
	a := store.MediaAsset{
		ID:        uuid.New(),
		Name:      name,
		FileName:  fileName,
		ObjectKey: objectKey,
		PublicURL: publicURL,
		Section:   section,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.assets[a.ID] = a
	return a, nil
}

func (f *fakeStore) UpdateAsset(_ context.Context, id uuid.UUID, upd store.AssetUpdate) (store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[id]
	if !ok {
		return store.MediaAsset{}, pgx.ErrNoRows
	}
	for otherID, other := range f.assets {
		if otherID != id && other.Name == upd.Name {
			return store.MediaAsset{}, store.ErrConflict
		}
	}
	a.Name = upd.Name
	a.FileName = upd.FileName
	a.ObjectKey = upd.ObjectKey
	a.PublicURL = upd.PublicURL
	if upd.Section != nil {
		a.Section = *upd.Section
	}
	a.UpdatedAt = time.Now()
	f.assets[id] = a
	return a, nil
}

func (f *fakeStore) DeleteAsset(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.assets, id)
	return nil
}

func (f *fakeStore) ListAssets(_ context.Context) ([]store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.MediaAsset
	for _, a := range f.assets {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) ListAssetsBySection(_ context.Context, section string) ([]store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.MediaAsset
	for _, a := range f.assets {
		if a.Section == section {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListLocalAssets(_ context.Context) ([]store.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.MediaAsset
	for _, a := range f.assets {
		if a.FileName != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) insertObjectAsset(t *testing.T, name, key, url string) store.MediaAsset {
	t.Helper()
	a, err := f.InsertAsset(context.Background(), name, nil, &key, &url, "gallery")
	if err != nil {
		t.Fatalf("insertObjectAsset(%q): %v", name, err)
	}
	return a
}

// testEnv wires a handler over a fake record store and a real local blob
// store rooted in a temp dir, with the media routes registered without the
// auth gate.
type testEnv struct {
	echo    *echo.Echo
	store   *fakeStore
	blobs   *storage.LocalBlobStore
	svc     *service.Service
	blobDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	blobs, err := storage.NewLocalBlobStore(dir)
	if err != nil {
		t.Fatalf("NewLocalBlobStore: %v", err)
	}
	st := newFakeStore()
	svc := service.New(st, blobs, "gallery", 1<<20)
	h := New(config.Config{}, svc, nil)

	e := echo.New()
	e.GET("/api/images", h.ListMedia)
	e.GET("/api/images/section/:section", h.ListMediaBySection)
	e.GET("/api/images/:name", h.GetMedia)
	e.HEAD("/api/images/:name", h.HeadMedia)
	e.OPTIONS("/api/images/:name", h.OptionsMedia)
	e.POST("/api/images/addNewImages", h.AddNewMedia)
	e.POST("/api/images/upload", h.UploadMedia)
	e.DELETE("/api/images/:name", h.DeleteMedia)

	return &testEnv{echo: e, store: st, blobs: blobs, svc: svc, blobDir: dir}
}

func (env *testEnv) seed(t *testing.T, name, section, contentType string, payload []byte) store.MediaAsset {
	t.Helper()
	asset, err := env.svc.AddNewAsset(context.Background(), name, section, service.UploadFile{
		OriginalName: "seed",
		ContentType:  contentType,
		Bytes:        payload,
	})
	if err != nil {
		t.Fatalf("seed asset %q: %v", name, err)
	}
	return asset
}

package service

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"mediahub/internal/storage"
)

// memBlobStorage is an in-memory BlobStorage. With object=true it hands out
// key+URL locators like the S3 backend; otherwise plain file names.
type memBlobStorage struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted map[string]bool
	object  bool
	delErr  error
}

var _ storage.BlobStorage = (*memBlobStorage)(nil)

func newMemBlobStorage(object bool) *memBlobStorage {
	return &memBlobStorage{
		blobs:   make(map[string][]byte),
		deleted: make(map[string]bool),
		object:  object,
	}
}

func (m *memBlobStorage) key(loc storage.Locator) string {
	if loc.FileName != "" {
		return loc.FileName
	}
	return loc.Key
}

func (m *memBlobStorage) Store(_ context.Context, r io.Reader, fileName, _ string) (storage.Locator, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Locator{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.object {
		key := "media/" + fileName
		m.blobs[key] = data
		return storage.Locator{Key: key, URL: "https://cdn.example.com/" + key}, nil
	}
	m.blobs[fileName] = data
	return storage.Locator{FileName: fileName}, nil
}

func (m *memBlobStorage) Open(_ context.Context, loc storage.Locator) (*storage.Blob, error) {
	m.mu.Lock()
	data, ok := m.blobs[m.key(loc)]
	m.mu.Unlock()
	if !ok {
		return nil, fs.ErrNotExist
	}

	// Blob wraps a real file; write the payload to a scratch one.
	f, err := os.CreateTemp("", "memblob-*")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = os.Remove(filepath.Clean(f.Name()))
	return storage.NewBlob(f, int64(len(data))), nil
}

func (m *memBlobStorage) Stat(_ context.Context, loc storage.Locator) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[m.key(loc)]
	if !ok {
		return 0, fs.ErrNotExist
	}
	return int64(len(data)), nil
}

func (m *memBlobStorage) Delete(_ context.Context, loc storage.Locator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	key := m.key(loc)
	delete(m.blobs, key)
	m.deleted[key] = true
	return nil
}

func (m *memBlobStorage) wasDeleted(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleted[key]
}

func (m *memBlobStorage) failDeletes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delErr = err
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalBlobStore keeps payloads as flat files in a single upload directory.
type LocalBlobStore struct {
	root string
}

var _ BlobStorage = (*LocalBlobStore)(nil)

func NewLocalBlobStore(root string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalBlobStore{root: root}, nil
}

func (b *LocalBlobStore) Store(_ context.Context, r io.Reader, fileName string, _ string) (Locator, error) {
	fileName, err := safeFileName(fileName)
	if err != nil {
		return Locator{}, err
	}

	tmpDir := filepath.Join(b.root, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return Locator{}, fmt.Errorf("create tmp dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(tmpDir, "upload-*")
	if err != nil {
		return Locator{}, fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmpFile, r); err != nil {
		return Locator{}, fmt.Errorf("write payload: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return Locator{}, fmt.Errorf("close tmp file: %w", err)
	}

	if err = os.Rename(tmpName, filepath.Join(b.root, fileName)); err != nil {
		return Locator{}, fmt.Errorf("move payload: %w", err)
	}
	return Locator{FileName: fileName}, nil
}

func (b *LocalBlobStore) Open(_ context.Context, loc Locator) (*Blob, error) {
	path, err := b.path(loc)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return NewBlob(f, info.Size()), nil
}

func (b *LocalBlobStore) Stat(_ context.Context, loc Locator) (int64, error) {
	path, err := b.path(loc)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (b *LocalBlobStore) Delete(_ context.Context, loc Locator) error {
	path, err := b.path(loc)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (b *LocalBlobStore) path(loc Locator) (string, error) {
	fileName, err := safeFileName(loc.FileName)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, fileName), nil
}

// safeFileName rejects anything that could escape the upload directory.
// Generated names never trip this; it guards against records written by hand.
func safeFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return name, nil
}

package storage

import (
	"context"
	"io"
	"os"
)

// Locator points at the physical bytes of one asset. Local-disk backends fill
// FileName; object-store backends fill Key and URL. Never both.
type Locator struct {
	FileName string
	Key      string
	URL      string
}

// Blob is an opened payload that supports sequential and seeked reads (range
// serving needs to start mid-file) and reports its size. Callers must Close it.
type Blob struct {
	file *os.File
	size int64
}

func NewBlob(f *os.File, size int64) *Blob {
	return &Blob{file: f, size: size}
}

func (b *Blob) Read(p []byte) (int, error)                  { return b.file.Read(p) }
func (b *Blob) Seek(off int64, whence int) (int64, error)   { return b.file.Seek(off, whence) }
func (b *Blob) ReadAt(p []byte, off int64) (int, error)     { return b.file.ReadAt(p, off) }
func (b *Blob) Close() error                                { return b.file.Close() }
func (b *Blob) Size() int64                                 { return b.size }

// BlobStorage is the contract both backends expose so the resolver and the
// media server stay backend-agnostic.
type BlobStorage interface {
	// Store writes the payload under the given unique file name and returns
	// the locator to persist. File names are generated per upload and never
	// reused, so Store must not overwrite unrelated objects.
	Store(ctx context.Context, r io.Reader, fileName string, contentType string) (Locator, error)

	// Open retrieves a previously stored payload. A missing payload reports
	// fs.ErrNotExist.
	Open(ctx context.Context, loc Locator) (*Blob, error)

	// Stat returns the payload size without opening it. A missing payload
	// reports fs.ErrNotExist.
	Stat(ctx context.Context, loc Locator) (int64, error)

	// Delete removes the payload. Deleting a payload that is already gone is
	// not an error; backend I/O failures are returned for the caller to log.
	Delete(ctx context.Context, loc Locator) error
}

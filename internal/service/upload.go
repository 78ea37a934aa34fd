package service

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"mime"
	"strings"
	"time"
)

// UploadFile is one staged multipart upload: the declared content type and the
// buffered payload. Validation happens before any bytes reach a backend.
type UploadFile struct {
	OriginalName string
	ContentType  string
	Bytes        []byte
}

func (s *Service) validateUpload(f UploadFile) (ext string, err error) {
	if len(f.Bytes) == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if int64(len(f.Bytes)) > s.maxUploadBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, s.maxUploadBytes)
	}

	mediaType := strings.ToLower(strings.TrimSpace(f.ContentType))
	if parsed, _, parseErr := mime.ParseMediaType(mediaType); parseErr == nil {
		mediaType = parsed
	}
	ext, ok := extByMIME[mediaType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported media type %q", ErrInvalidInput, f.ContentType)
	}
	return ext, nil
}

// newFileName generates the unique physical name for an upload:
// media-<unix-ms>-<random9><ext>. The millisecond timestamp plus a random
// nine-digit suffix keeps concurrent uploads from ever colliding in the
// shared upload directory.
func newFileName(ext string) string {
	return fmt.Sprintf("media-%d-%09d%s", time.Now().UnixMilli(), randomSuffix(), ext)
}

func randomSuffix() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// clock so the name still varies.
		return uint64(time.Now().UnixNano()) % 1_000_000_000
	}
	return binary.BigEndian.Uint64(buf[:]) % 1_000_000_000
}

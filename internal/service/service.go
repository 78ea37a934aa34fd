package service

import (
	"context"
	"errors"

	"mediahub/internal/storage"
	"mediahub/internal/store"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// AssetStore is the slice of the record store the resolver needs.
// *store.Store implements it; tests substitute an in-memory fake.
type AssetStore interface {
	GetAssetByName(ctx context.Context, name string) (store.MediaAsset, error)
	GetAssetByNameFold(ctx context.Context, name string) (store.MediaAsset, error)
	InsertAsset(ctx context.Context, name string, fileName, objectKey, publicURL *string, section string) (store.MediaAsset, error)
	UpdateAsset(ctx context.Context, id uuid.UUID, upd store.AssetUpdate) (store.MediaAsset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
	ListAssets(ctx context.Context) ([]store.MediaAsset, error)
	ListAssetsBySection(ctx context.Context, section string) ([]store.MediaAsset, error)
	ListLocalAssets(ctx context.Context) ([]store.MediaAsset, error)
}

var _ AssetStore = (*store.Store)(nil)

type Service struct {
	store          AssetStore
	blobs          storage.BlobStorage
	defaultSection string
	maxUploadBytes int64
}

func New(st AssetStore, blobs storage.BlobStorage, defaultSection string, maxUploadBytes int64) *Service {
	if defaultSection == "" {
		defaultSection = "gallery"
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 25 * 1024 * 1024
	}
	return &Service{
		store:          st,
		blobs:          blobs,
		defaultSection: defaultSection,
		maxUploadBytes: maxUploadBytes,
	}
}

func (s *Service) MaxUploadBytes() int64 { return s.maxUploadBytes }

func (s *Service) ListAssets(ctx context.Context) ([]store.MediaAsset, error) {
	return s.store.ListAssets(ctx)
}

func (s *Service) ListAssetsBySection(ctx context.Context, section string) ([]store.MediaAsset, error) {
	return s.store.ListAssetsBySection(ctx, section)
}

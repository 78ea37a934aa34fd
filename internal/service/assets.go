package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"mediahub/internal/storage"
	"mediahub/internal/store"
)

// AssetLocator converts the record's locator columns to the storage form.
func AssetLocator(a store.MediaAsset) storage.Locator {
	var loc storage.Locator
	if a.FileName != nil {
		loc.FileName = *a.FileName
	}
	if a.ObjectKey != nil {
		loc.Key = *a.ObjectKey
	}
	if a.PublicURL != nil {
		loc.URL = *a.PublicURL
	}
	return loc
}

func locatorColumns(loc storage.Locator) (fileName, objectKey, publicURL *string) {
	if loc.FileName != "" {
		return &loc.FileName, nil, nil
	}
	return nil, &loc.Key, &loc.URL
}

// AddNewAsset is the create-only entry point: the name must be unused.
func (s *Service) AddNewAsset(ctx context.Context, name, section string, file UploadFile) (store.MediaAsset, error) {
	name = strings.TrimSpace(name)
	section = strings.TrimSpace(section)
	if name == "" {
		return store.MediaAsset{}, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if section == "" {
		return store.MediaAsset{}, fmt.Errorf("%w: section required", ErrInvalidInput)
	}
	ext, err := s.validateUpload(file)
	if err != nil {
		return store.MediaAsset{}, err
	}

	// Advisory pre-check; the unique index on name is the real arbiter.
	if _, err := s.store.GetAssetByName(ctx, name); err == nil {
		return store.MediaAsset{}, fmt.Errorf("%w: name already exists", ErrConflict)
	} else if !store.IsNotFound(err) {
		return store.MediaAsset{}, err
	}

	loc, err := s.blobs.Store(ctx, bytes.NewReader(file.Bytes), newFileName(ext), file.ContentType)
	if err != nil {
		return store.MediaAsset{}, fmt.Errorf("store payload: %w", err)
	}

	fileName, objectKey, publicURL := locatorColumns(loc)
	asset, err := s.store.InsertAsset(ctx, name, fileName, objectKey, publicURL, section)
	if err != nil {
		// A concurrent creator won the race; the fresh blob is now unowned.
		s.deleteBlob(ctx, loc, "orphaned new payload")
		if isConflict(err) {
			return store.MediaAsset{}, fmt.Errorf("%w: name already exists", ErrConflict)
		}
		return store.MediaAsset{}, err
	}
	return asset, nil
}

// UpsertParams carries the optional fields of the upsert entry point. A blank
// Section preserves the stored value on update; on create it is required
// (creation via upsert is opt-in, matching the strictest upstream behavior).
type UpsertParams struct {
	Name    string
	NewName string
	Section string
}

func (s *Service) UpsertAsset(ctx context.Context, p UpsertParams, file UploadFile) (store.MediaAsset, error) {
	name := strings.TrimSpace(p.Name)
	newName := strings.TrimSpace(p.NewName)
	section := strings.TrimSpace(p.Section)
	if name == "" {
		return store.MediaAsset{}, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	ext, err := s.validateUpload(file)
	if err != nil {
		return store.MediaAsset{}, err
	}

	existing, found, err := s.lookupAsset(ctx, name)
	if err != nil {
		return store.MediaAsset{}, err
	}

	if !found {
		// Opt-in creation: callers must name the section to seed a new record.
		if section == "" {
			return store.MediaAsset{}, fmt.Errorf("%w: asset not found; include section to create it", ErrNotFound)
		}
		createName := name
		if newName != "" {
			createName = newName
		}
		loc, err := s.blobs.Store(ctx, bytes.NewReader(file.Bytes), newFileName(ext), file.ContentType)
		if err != nil {
			return store.MediaAsset{}, fmt.Errorf("store payload: %w", err)
		}
		fileName, objectKey, publicURL := locatorColumns(loc)
		asset, err := s.store.InsertAsset(ctx, createName, fileName, objectKey, publicURL, section)
		if err != nil {
			s.deleteBlob(ctx, loc, "orphaned new payload")
			if isConflict(err) {
				return store.MediaAsset{}, fmt.Errorf("%w: name already exists", ErrConflict)
			}
			return store.MediaAsset{}, err
		}
		return asset, nil
	}

	nextName := existing.Name
	if newName != "" && newName != existing.Name {
		// Rename: refuse to steal a name another record owns. Pre-check here,
		// unique index below.
		if _, err := s.store.GetAssetByName(ctx, newName); err == nil {
			return store.MediaAsset{}, fmt.Errorf("%w: newName already exists", ErrConflict)
		} else if !store.IsNotFound(err) {
			return store.MediaAsset{}, err
		}
		nextName = newName
	}

	loc, err := s.blobs.Store(ctx, bytes.NewReader(file.Bytes), newFileName(ext), file.ContentType)
	if err != nil {
		return store.MediaAsset{}, fmt.Errorf("store payload: %w", err)
	}

	upd := store.AssetUpdate{Name: nextName}
	upd.FileName, upd.ObjectKey, upd.PublicURL = locatorColumns(loc)
	if section != "" {
		upd.Section = &section
	}

	oldLoc := AssetLocator(existing)
	updated, err := s.store.UpdateAsset(ctx, existing.ID, upd)
	if err != nil {
		s.deleteBlob(ctx, loc, "orphaned new payload")
		if isConflict(err) {
			return store.MediaAsset{}, fmt.Errorf("%w: newName already exists", ErrConflict)
		}
		return store.MediaAsset{}, err
	}

	// The record now points at the new payload; the old one is best-effort.
	s.deleteBlob(ctx, oldLoc, "superseded payload")
	return updated, nil
}

func (s *Service) DeleteAsset(ctx context.Context, name string) error {
	asset, err := s.store.GetAssetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if store.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	// Blob first, record second. The record is the source of truth, so it is
	// removed even when the blob delete fails.
	s.deleteBlob(ctx, AssetLocator(asset), "deleted asset payload")

	if err := s.store.DeleteAsset(ctx, asset.ID); err != nil {
		if store.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ResolveAsset is the read path used by the media server: exact name only.
func (s *Service) ResolveAsset(ctx context.Context, name string) (store.MediaAsset, error) {
	asset, err := s.store.GetAssetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if store.IsNotFound(err) {
			return store.MediaAsset{}, ErrNotFound
		}
		return store.MediaAsset{}, err
	}
	return asset, nil
}

func (s *Service) OpenAssetBlob(ctx context.Context, a store.MediaAsset) (*storage.Blob, error) {
	return s.blobs.Open(ctx, AssetLocator(a))
}

func (s *Service) StatAssetBlob(ctx context.Context, a store.MediaAsset) (int64, error) {
	return s.blobs.Stat(ctx, AssetLocator(a))
}

// lookupAsset resolves a caller-supplied name: exact match first, then a
// case-insensitive fallback that tolerates caller case drift.
func (s *Service) lookupAsset(ctx context.Context, name string) (store.MediaAsset, bool, error) {
	asset, err := s.store.GetAssetByName(ctx, name)
	if err == nil {
		return asset, true, nil
	}
	if !store.IsNotFound(err) {
		return store.MediaAsset{}, false, err
	}

	asset, err = s.store.GetAssetByNameFold(ctx, name)
	if err == nil {
		return asset, true, nil
	}
	if !store.IsNotFound(err) {
		return store.MediaAsset{}, false, err
	}
	return store.MediaAsset{}, false, nil
}

func (s *Service) deleteBlob(ctx context.Context, loc storage.Locator, what string) {
	if loc == (storage.Locator{}) {
		return
	}
	if err := s.blobs.Delete(ctx, loc); err != nil {
		log.Printf("blob cleanup (%s) failed for %+v: %v", what, loc, err)
	}
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrConflict)
}

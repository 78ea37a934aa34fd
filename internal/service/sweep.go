package service

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"mediahub/internal/storage"
	"mediahub/internal/store"

	"golang.org/x/sync/errgroup"
)

// SweepOptions configures the local-to-object-store migration sweep.
type SweepOptions struct {
	Concurrency int
	// RemoveLocal deletes the local file once the record points at the
	// object store.
	RemoveLocal bool
	DryRun      bool
}

type SweepResult struct {
	Scanned  int
	Migrated int64
	Failed   int64
}

// SweepLocalAssets re-homes every asset with a local locator into the object
// store: upload the bytes, flip the record to key+URL, then optionally remove
// the local file. Per-asset failures are logged and counted; the sweep keeps
// going.
func (s *Service) SweepLocalAssets(
	ctx context.Context,
	local storage.BlobStorage,
	object storage.BlobStorage,
	opts SweepOptions,
) (SweepResult, error) {
	assets, err := s.store.ListLocalAssets(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list local assets: %w", err)
	}

	res := SweepResult{Scanned: len(assets)}
	if opts.DryRun {
		for _, a := range assets {
			log.Printf("would migrate %q (%s)", a.Name, AssetFileName(a))
		}
		return res, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, asset := range assets {
		asset := asset
		g.Go(func() error {
			if err := s.migrateAsset(gctx, local, object, asset, opts.RemoveLocal); err != nil {
				atomic.AddInt64(&res.Failed, 1)
				log.Printf("migrate %q: %v", asset.Name, err)
				return nil
			}
			atomic.AddInt64(&res.Migrated, 1)
			log.Printf("migrated %q -> object store", asset.Name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) migrateAsset(
	ctx context.Context,
	local storage.BlobStorage,
	object storage.BlobStorage,
	asset store.MediaAsset,
	removeLocal bool,
) error {
	oldLoc := AssetLocator(asset)
	blob, err := local.Open(ctx, oldLoc)
	if err != nil {
		return fmt.Errorf("open local payload: %w", err)
	}
	defer blob.Close()

	newLoc, err := object.Store(ctx, blob, oldLoc.FileName, AssetContentType(asset))
	if err != nil {
		return fmt.Errorf("upload payload: %w", err)
	}

	upd := store.AssetUpdate{Name: asset.Name}
	upd.FileName, upd.ObjectKey, upd.PublicURL = locatorColumns(newLoc)
	if _, err := s.store.UpdateAsset(ctx, asset.ID, upd); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	if removeLocal {
		if err := local.Delete(ctx, oldLoc); err != nil {
			log.Printf("remove migrated local file %q: %v", oldLoc.FileName, err)
		}
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrConflict = errors.New("conflict")

// MediaAsset is one metadata record. Exactly one locator mode is populated:
// FileName for local-disk storage, ObjectKey+PublicURL for object storage.
type MediaAsset struct {
	ID        uuid.UUID
	Name      string
	FileName  *string
	ObjectKey *string
	PublicURL *string
	Section   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssetUpdate describes an in-place mutation of an existing record. Name must
// always carry the resulting name (unchanged or renamed); a nil Section keeps
// the stored value.
type AssetUpdate struct {
	Name      string
	FileName  *string
	ObjectKey *string
	PublicURL *string
	Section   *string
}

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const assetColumns = `id, name, file_name, object_key, public_url, section, created_at, updated_at`

func scanAsset(row pgx.Row) (MediaAsset, error) {
	var a MediaAsset
	err := row.Scan(&a.ID, &a.Name, &a.FileName, &a.ObjectKey, &a.PublicURL, &a.Section, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return MediaAsset{}, err
	}
	return a, nil
}

func (s *Store) GetAssetByName(ctx context.Context, name string) (MediaAsset, error) {
	return scanAsset(s.db.QueryRow(ctx, `
		SELECT `+assetColumns+`
		FROM media_assets
		WHERE name = $1
	`, name))
}

// GetAssetByNameFold is the case-insensitive fallback lookup. It is an exact
// match modulo case, not a substring search, and returns pgx.ErrNoRows when
// more than one record folds to the same name (the caller cannot pick safely).
func (s *Store) GetAssetByNameFold(ctx context.Context, name string) (MediaAsset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+assetColumns+`
		FROM media_assets
		WHERE lower(name) = lower($1)
	`, name)
	if err != nil {
		return MediaAsset{}, err
	}
	defer rows.Close()

	var matches []MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return MediaAsset{}, err
		}
		matches = append(matches, a)
	}
	if rows.Err() != nil {
		return MediaAsset{}, rows.Err()
	}
	if len(matches) != 1 {
		return MediaAsset{}, pgx.ErrNoRows
	}
	return matches[0], nil
}

func (s *Store) InsertAsset(
	ctx context.Context,
	name string,
	fileName, objectKey, publicURL *string,
	section string,
) (MediaAsset, error) {
	asset, err := scanAsset(s.db.QueryRow(ctx, `
		INSERT INTO media_assets (name, file_name, object_key, public_url, section)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+assetColumns+`
	`, name, fileName, objectKey, publicURL, section))
	if err != nil {
		if isUniqueViolation(err) {
			return MediaAsset{}, ErrConflict
		}
		return MediaAsset{}, err
	}
	return asset, nil
}

func (s *Store) UpdateAsset(ctx context.Context, id uuid.UUID, upd AssetUpdate) (MediaAsset, error) {
	asset, err := scanAsset(s.db.QueryRow(ctx, `
		UPDATE media_assets
		SET name = $2,
		    file_name = $3,
		    object_key = $4,
		    public_url = $5,
		    section = COALESCE($6, section),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+assetColumns+`
	`, id, upd.Name, upd.FileName, upd.ObjectKey, upd.PublicURL, upd.Section))
	if err != nil {
		if isUniqueViolation(err) {
			return MediaAsset{}, ErrConflict
		}
		return MediaAsset{}, err
	}
	return asset, nil
}

func (s *Store) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	ct, err := s.db.Exec(ctx, `
		DELETE FROM media_assets
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) ListAssets(ctx context.Context) ([]MediaAsset, error) {
	return s.listAssets(ctx, `
		SELECT `+assetColumns+`
		FROM media_assets
		ORDER BY created_at DESC, name ASC
	`)
}

func (s *Store) ListAssetsBySection(ctx context.Context, section string) ([]MediaAsset, error) {
	return s.listAssets(ctx, `
		SELECT `+assetColumns+`
		FROM media_assets
		WHERE section = $1
		ORDER BY created_at DESC, name ASC
	`, section)
}

// ListLocalAssets returns records still carrying a local-disk locator. Used by
// the object-store migration sweep.
func (s *Store) ListLocalAssets(ctx context.Context) ([]MediaAsset, error) {
	return s.listAssets(ctx, `
		SELECT `+assetColumns+`
		FROM media_assets
		WHERE file_name IS NOT NULL
		ORDER BY created_at ASC
	`)
}

func (s *Store) listAssets(ctx context.Context, query string, args ...any) ([]MediaAsset, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

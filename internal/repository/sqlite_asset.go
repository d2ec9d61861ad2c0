package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/domain"
)

const assetColumns = `id, name, type, status, max_capacity, crane_capacity, attributes, created_at, updated_at`

// SQLiteAssetRepo implements AssetRepo.
type SQLiteAssetRepo struct {
	db db.DBTX
}

func NewSQLiteAssetRepo(db db.DBTX) *SQLiteAssetRepo {
	return &SQLiteAssetRepo{db: db}
}

func (r *SQLiteAssetRepo) Create(ctx context.Context, a *domain.Asset) error {
	attrs, err := encodeValues(a.Attributes)
	if err != nil {
		return err
	}
	query := `INSERT INTO assets (` + assetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		string(a.Type),
		string(a.Status),
		nullableFloat(a.MaxCapacity),
		nullableFloat(a.CraneCapacity),
		attrs,
		formatTime(a.CreatedAt),
		formatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting asset: %w", err)
	}
	return nil
}

func (r *SQLiteAssetRepo) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = ?`
	a, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("asset", err)
	}
	return a, nil
}

func (r *SQLiteAssetRepo) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY name, id`
	return r.list(ctx, "listing assets", query)
}

func (r *SQLiteAssetRepo) ListByType(ctx context.Context, assetType domain.AssetType) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE type = ? ORDER BY name, id`
	return r.list(ctx, "listing assets by type", query, string(assetType))
}

func (r *SQLiteAssetRepo) Update(ctx context.Context, a *domain.Asset) error {
	attrs, err := encodeValues(a.Attributes)
	if err != nil {
		return err
	}
	query := `UPDATE assets SET name = ?, type = ?, status = ?, max_capacity = ?, crane_capacity = ?,
		attributes = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		a.Name,
		string(a.Type),
		string(a.Status),
		nullableFloat(a.MaxCapacity),
		nullableFloat(a.CraneCapacity),
		attrs,
		formatTime(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}
	return requireAffected("asset", res)
}

func (r *SQLiteAssetRepo) list(ctx context.Context, op, query string, args ...any) ([]*domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}
	return out, nil
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var (
		a                      domain.Asset
		assetType, status      string
		maxCap, craneCap       sql.NullFloat64
		attrs, created, update string
	)
	err := row.Scan(&a.ID, &a.Name, &assetType, &status, &maxCap, &craneCap, &attrs, &created, &update)
	if err != nil {
		return nil, err
	}

	a.Type = domain.AssetType(assetType)
	a.Status = domain.AssetStatus(status)
	a.MaxCapacity = floatPtr(maxCap)
	a.CraneCapacity = floatPtr(craneCap)
	if a.CreatedAt, err = parseTime("created_at", created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime("updated_at", update); err != nil {
		return nil, err
	}
	if a.Attributes, err = decodeValues(attrs); err != nil {
		return nil, err
	}
	return &a, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/domain"
)

const shipVisitColumns = `id, vessel_name, imo, status, eta, ata, etd, atd, container_count, berth_id,
		created_at, updated_at`

// SQLiteShipVisitRepo implements ShipVisitRepo.
type SQLiteShipVisitRepo struct {
	db db.DBTX
}

func NewSQLiteShipVisitRepo(db db.DBTX) *SQLiteShipVisitRepo {
	return &SQLiteShipVisitRepo{db: db}
}

func (r *SQLiteShipVisitRepo) Create(ctx context.Context, v *domain.ShipVisit) error {
	query := `INSERT INTO ship_visits (` + shipVisitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.VesselName,
		v.IMO,
		string(v.Status),
		formatTime(v.ETA),
		nullableTimeToString(v.ATA),
		formatTime(v.ETD),
		nullableTimeToString(v.ATD),
		v.ContainerCount,
		nullableString(v.BerthID),
		formatTime(v.CreatedAt),
		formatTime(v.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting ship visit: %w", err)
	}
	return nil
}

func (r *SQLiteShipVisitRepo) GetByID(ctx context.Context, id string) (*domain.ShipVisit, error) {
	query := `SELECT ` + shipVisitColumns + ` FROM ship_visits WHERE id = ?`
	v, err := scanShipVisit(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("ship visit", err)
	}
	return v, nil
}

func (r *SQLiteShipVisitRepo) List(ctx context.Context) ([]*domain.ShipVisit, error) {
	query := `SELECT ` + shipVisitColumns + ` FROM ship_visits ORDER BY eta, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing ship visits: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShipVisit
	for rows.Next() {
		v, err := scanShipVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ship visit row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ship visits: %w", err)
	}
	return out, nil
}

func (r *SQLiteShipVisitRepo) Update(ctx context.Context, v *domain.ShipVisit) error {
	query := `UPDATE ship_visits SET vessel_name = ?, imo = ?, status = ?, eta = ?, ata = ?, etd = ?, atd = ?,
		container_count = ?, berth_id = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		v.VesselName,
		v.IMO,
		string(v.Status),
		formatTime(v.ETA),
		nullableTimeToString(v.ATA),
		formatTime(v.ETD),
		nullableTimeToString(v.ATD),
		v.ContainerCount,
		nullableString(v.BerthID),
		formatTime(v.UpdatedAt),
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("updating ship visit: %w", err)
	}
	return requireAffected("ship visit", res)
}

func scanShipVisit(row rowScanner) (*domain.ShipVisit, error) {
	var (
		v                    domain.ShipVisit
		status, eta, etd     string
		ata, atd, berthID    sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&v.ID, &v.VesselName, &v.IMO, &status, &eta, &ata, &etd, &atd,
		&v.ContainerCount, &berthID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	v.Status = domain.ShipVisitStatus(status)
	v.ATA = parseNullableTime(ata)
	v.ATD = parseNullableTime(atd)
	v.BerthID = stringPtr(berthID)
	if v.ETA, err = parseTime("eta", eta); err != nil {
		return nil, err
	}
	if v.ETD, err = parseTime("etd", etd); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

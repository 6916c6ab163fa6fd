package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// CatalogRepository reads status and role reference data.
type CatalogRepository interface {
	// StatusName returns ok=false when the status does not exist.
	StatusName(ctx context.Context, id int64) (name string, ok bool, err error)
	// RoleName returns ok=false when the role does not exist.
	RoleName(ctx context.Context, id int64) (name string, ok bool, err error)
	ListStatuses(ctx context.Context) ([]domain.Status, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

type catalogRepository struct {
	db DBTX
}

// NewCatalogRepository builds the repository.
func NewCatalogRepository(db DBTX) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) StatusName(ctx context.Context, id int64) (string, bool, error) {
	return r.lookupName(ctx, `SELECT name FROM statuses WHERE id=$1`, id)
}

func (r *catalogRepository) RoleName(ctx context.Context, id int64) (string, bool, error) {
	return r.lookupName(ctx, `SELECT name FROM roles WHERE id=$1`, id)
}

func (r *catalogRepository) lookupName(ctx context.Context, query string, id int64) (string, bool, error) {
	var name string
	if err := r.db.QueryRow(ctx, query, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

func (r *catalogRepository) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, color FROM statuses ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var status domain.Status
		if err := rows.Scan(&status.ID, &status.Name, &status.Color); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

func (r *catalogRepository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM roles ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

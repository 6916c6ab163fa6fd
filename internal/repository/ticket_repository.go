package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// InconsistencyKind names what is wrong with a ticket row.
type InconsistencyKind string

const (
	InconsistencyMissingStatus InconsistencyKind = "missing_status"
	InconsistencyMissingType   InconsistencyKind = "missing_type"
	InconsistencyMissingRole   InconsistencyKind = "missing_role"
)

// InconsistentTicket is a ticket whose references do not resolve.
type InconsistentTicket struct {
	Ticket domain.Ticket
	Issues []InconsistencyKind
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetForUpdate loads the ticket and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	// UpdateStatusAndRole changes status and owning role only if the ticket
	// is still in expectedStatusID.
	UpdateStatusAndRole(ctx context.Context, id, expectedStatusID, statusID int64, roleID *int64) error
	ListInconsistent(ctx context.Context, limit int) ([]InconsistentTicket, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, status_id, type_id, title, role_id, created_by, created_at, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateStatusAndRole(ctx context.Context, id, expectedStatusID, statusID int64, roleID *int64) error {
	const query = `
        UPDATE tickets SET status_id=$1, role_id=$2, updated_at=NOW()
        WHERE id=$3 AND status_id=$4`
	cmd, err := r.db.Exec(ctx, query, statusID, roleID, id, expectedStatusID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *ticketRepository) ListInconsistent(ctx context.Context, limit int) ([]InconsistentTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
        SELECT t.id, t.status_id, t.type_id, t.title, t.role_id, t.created_by, t.created_at, t.updated_at,
               s.id IS NULL AS missing_status,
               tt.id IS NULL AS missing_type,
               (t.role_id IS NOT NULL AND r.id IS NULL) AS missing_role
        FROM tickets t
        LEFT JOIN statuses s ON s.id = t.status_id
        LEFT JOIN ticket_types tt ON tt.id = t.type_id
        LEFT JOIN roles r ON r.id = t.role_id
        WHERE s.id IS NULL OR tt.id IS NULL OR (t.role_id IS NOT NULL AND r.id IS NULL)
        ORDER BY t.id
        LIMIT %d`, limit)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InconsistentTicket
	for rows.Next() {
		var item InconsistentTicket
		var missingStatus, missingType, missingRole bool
		t := &item.Ticket
		if err := rows.Scan(
			&t.ID, &t.StatusID, &t.TypeID, &t.Title, &t.RoleID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
			&missingStatus, &missingType, &missingRole,
		); err != nil {
			return nil, err
		}
		item.Issues = issuesFrom(missingStatus, missingType, missingRole)
		result = append(result, item)
	}
	return result, rows.Err()
}

func issuesFrom(missingStatus, missingType, missingRole bool) []InconsistencyKind {
	var issues []InconsistencyKind
	if missingStatus {
		issues = append(issues, InconsistencyMissingStatus)
	}
	if missingType {
		issues = append(issues, InconsistencyMissingType)
	}
	if missingRole {
		issues = append(issues, InconsistencyMissingRole)
	}
	return issues
}

// String renders issues for CLI output.
func (t InconsistentTicket) String() string {
	parts := make([]string, 0, len(t.Issues))
	for _, issue := range t.Issues {
		parts = append(parts, string(issue))
	}
	return fmt.Sprintf("ticket %d: %s", t.Ticket.ID, strings.Join(parts, ","))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.StatusID,
		&ticket.TypeID,
		&ticket.Title,
		&ticket.RoleID,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

package repository

import (
	"context"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// TransitionRuleRepository reads the declarative workflow table.
type TransitionRuleRepository interface {
	// ListFromStatus returns every rule whose current status is statusID,
	// regardless of ticket type or actor role.
	ListFromStatus(ctx context.Context, statusID int64) ([]domain.TransitionRule, error)
	// StripLabel removes substring from every button label and returns the
	// number of rules changed.
	StripLabel(ctx context.Context, substring string) (int64, error)
}

type transitionRuleRepository struct {
	db DBTX
}

// NewTransitionRuleRepository builds the repository.
func NewTransitionRuleRepository(db DBTX) TransitionRuleRepository {
	return &transitionRuleRepository{db: db}
}

func (r *transitionRuleRepository) ListFromStatus(ctx context.Context, statusID int64) ([]domain.TransitionRule, error) {
	const query = `
        SELECT id, from_status_id, COALESCE(ticket_type_id, 0), next_status_id,
               COALESCE(actor_role_id, 0), COALESCE(target_role_id, 0), button_label
        FROM transition_rules
        WHERE from_status_id=$1
        ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, statusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TransitionRule
	for rows.Next() {
		var rule domain.TransitionRule
		if err := rows.Scan(
			&rule.ID,
			&rule.FromStatusID,
			&rule.TicketTypeID,
			&rule.NextStatusID,
			&rule.ActorRoleID,
			&rule.TargetRoleID,
			&rule.ButtonLabel,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *transitionRuleRepository) StripLabel(ctx context.Context, substring string) (int64, error) {
	const query = `
        UPDATE transition_rules SET button_label = TRIM(REPLACE(button_label, $1, ''))
        WHERE POSITION($1 IN button_label) > 0`
	cmd, err := r.db.Exec(ctx, query, substring)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Package memory provides an in-memory implementation of the workflow
// repositories, used by tests and by the API when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

var _ repository.TxManager = (*Store)(nil)

// Store keeps all workflow state in process memory. Transactions are
// serialized by txMu, which plays the role of the ticket row lock; writes made
// inside a transaction are staged and only become visible on commit.
type Store struct {
	txMu sync.Mutex

	mu            sync.RWMutex
	tickets       map[int64]domain.Ticket
	history       []domain.TicketHistory
	nextHistoryID int64
	historyErr    error

	refMu    sync.RWMutex
	statuses map[int64]domain.Status
	roles    map[int64]domain.Role
	types    map[int64]domain.TicketType
	rules    []domain.TransitionRule
	nextRule int64

	notifyMu      sync.Mutex
	notifications []domain.Notification
	nextNotifyID  int64
	notifyErr     error

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		tickets:  make(map[int64]domain.Ticket),
		statuses: make(map[int64]domain.Status),
		roles:    make(map[int64]domain.Role),
		types:    make(map[int64]domain.TicketType),
		now:      time.Now,
	}
}

// AddStatus inserts or replaces a status row.
func (s *Store) AddStatus(status domain.Status) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.statuses[status.ID] = status
}

// AddRole inserts or replaces a role row.
func (s *Store) AddRole(role domain.Role) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.roles[role.ID] = role
}

// AddTicketType inserts or replaces a ticket type row.
func (s *Store) AddTicketType(t domain.TicketType) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.types[t.ID] = t
}

// AddRule appends a transition rule, assigning the next free id when missing.
// An explicit id already held by another rule is rejected.
func (s *Store) AddRule(rule domain.TransitionRule) (domain.TransitionRule, error) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if rule.ID == 0 {
		s.nextRule++
		for s.ruleIDTaken(s.nextRule) {
			s.nextRule++
		}
		rule.ID = s.nextRule
	} else if s.ruleIDTaken(rule.ID) {
		return domain.TransitionRule{}, fmt.Errorf("transition rule id %d already exists", rule.ID)
	} else if rule.ID > s.nextRule {
		s.nextRule = rule.ID
	}
	s.rules = append(s.rules, rule)
	return rule, nil
}

func (s *Store) ruleIDTaken(id int64) bool {
	for _, r := range s.rules {
		if r.ID == id {
			return true
		}
	}
	return false
}

// AddTicket inserts or replaces a ticket.
func (s *Store) AddTicket(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.now()
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	s.tickets[ticket.ID] = ticket
}

// FailHistoryWrites makes every subsequent history append return err.
// Passing nil restores normal behavior.
func (s *Store) FailHistoryWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyErr = err
}

// FailNotifications makes every subsequent notification insert return err.
func (s *Store) FailNotifications(err error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notifyErr = err
}

// Tickets exposes the ticket repository outside of a transaction.
func (s *Store) Tickets() repository.TicketRepository { return ticketView{s: s} }

// History exposes the history repository outside of a transaction.
func (s *Store) History() repository.TicketHistoryRepository { return historyView{s: s} }

// Rules exposes the transition rule repository.
func (s *Store) Rules() repository.TransitionRuleRepository { return ruleView{s: s} }

// Catalog exposes the status and role catalog.
func (s *Store) Catalog() repository.CatalogRepository { return catalogView{s: s} }

// Notifications exposes the notification repository.
func (s *Store) Notifications() repository.NotificationRepository { return notificationView{s: s} }

// WithinTx runs fn with repositories whose writes are committed together
// when fn returns nil and discarded otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txState{s: s, tickets: make(map[int64]domain.Ticket)}
	if err := fn(ctx, repository.TxRepositories{
		Tickets: txTicketView{tx: tx},
		History: txHistoryView{tx: tx},
		Rules:   ruleView{s: s},
		Catalog: catalogView{s: s},
	}); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type txState struct {
	s       *Store
	tickets map[int64]domain.Ticket
	history []domain.TicketHistory
}

func (tx *txState) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for id, ticket := range tx.tickets {
		tx.s.tickets[id] = ticket
	}
	tx.s.history = append(tx.s.history, tx.history...)
}

func (tx *txState) ticket(id int64) (domain.Ticket, bool) {
	if t, ok := tx.tickets[id]; ok {
		return t, true
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	t, ok := tx.s.tickets[id]
	return t, ok
}

type txTicketView struct {
	tx *txState
}

func (v txTicketView) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	t, ok := v.tx.ticket(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (v txTicketView) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return v.GetByID(ctx, id)
}

func (v txTicketView) UpdateStatusAndRole(_ context.Context, id, expectedStatusID, statusID int64, roleID *int64) error {
	t, ok := v.tx.ticket(id)
	if !ok || t.StatusID != expectedStatusID {
		return repository.ErrStaleStatus
	}
	t.StatusID = statusID
	t.RoleID = cloneID(roleID)
	t.UpdatedAt = v.tx.s.now()
	v.tx.tickets[id] = t
	return nil
}

func (v txTicketView) ListInconsistent(ctx context.Context, limit int) ([]repository.InconsistentTicket, error) {
	return ticketView{s: v.tx.s}.ListInconsistent(ctx, limit)
}

type txHistoryView struct {
	tx *txState
}

func (v txHistoryView) Create(_ context.Context, entry *domain.TicketHistory) error {
	// ids are reserved eagerly, so a rolled back transaction leaves a gap
	// the way a database sequence does.
	v.tx.s.mu.Lock()
	if err := v.tx.s.historyErr; err != nil {
		v.tx.s.mu.Unlock()
		return err
	}
	v.tx.s.nextHistoryID++
	entry.ID = v.tx.s.nextHistoryID
	v.tx.s.mu.Unlock()

	v.tx.history = append(v.tx.history, *entry)
	return nil
}

func (v txHistoryView) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	return historyView{s: v.tx.s}.ListByTicket(ctx, ticketID)
}

type ticketView struct {
	s *Store
}

func (v ticketView) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	t, ok := v.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTicket(t), nil
}

// GetForUpdate outside a transaction behaves like GetByID.
func (v ticketView) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return v.GetByID(ctx, id)
}

func (v ticketView) UpdateStatusAndRole(_ context.Context, id, expectedStatusID, statusID int64, roleID *int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.tickets[id]
	if !ok || t.StatusID != expectedStatusID {
		return repository.ErrStaleStatus
	}
	t.StatusID = statusID
	t.RoleID = cloneID(roleID)
	t.UpdatedAt = v.s.now()
	v.s.tickets[id] = t
	return nil
}

func (v ticketView) ListInconsistent(_ context.Context, limit int) ([]repository.InconsistentTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	v.s.mu.RLock()
	tickets := make([]domain.Ticket, 0, len(v.s.tickets))
	for _, t := range v.s.tickets {
		tickets = append(tickets, t)
	}
	v.s.mu.RUnlock()
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })

	v.s.refMu.RLock()
	defer v.s.refMu.RUnlock()

	var result []repository.InconsistentTicket
	for _, t := range tickets {
		var issues []repository.InconsistencyKind
		if _, ok := v.s.statuses[t.StatusID]; !ok {
			issues = append(issues, repository.InconsistencyMissingStatus)
		}
		if _, ok := v.s.types[t.TypeID]; !ok {
			issues = append(issues, repository.InconsistencyMissingType)
		}
		if t.RoleID != nil {
			if _, ok := v.s.roles[*t.RoleID]; !ok {
				issues = append(issues, repository.InconsistencyMissingRole)
			}
		}
		if len(issues) == 0 {
			continue
		}
		result = append(result, repository.InconsistentTicket{Ticket: *cloneTicket(t), Issues: issues})
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

type historyView struct {
	s *Store
}

func (v historyView) Create(_ context.Context, entry *domain.TicketHistory) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.historyErr != nil {
		return v.s.historyErr
	}
	v.s.nextHistoryID++
	entry.ID = v.s.nextHistoryID
	v.s.history = append(v.s.history, *entry)
	return nil
}

func (v historyView) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var result []domain.TicketHistory
	for _, entry := range v.s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type ruleView struct {
	s *Store
}

func (v ruleView) ListFromStatus(_ context.Context, statusID int64) ([]domain.TransitionRule, error) {
	v.s.refMu.RLock()
	defer v.s.refMu.RUnlock()
	var result []domain.TransitionRule
	for _, rule := range v.s.rules {
		if rule.FromStatusID == statusID {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (v ruleView) StripLabel(_ context.Context, substring string) (int64, error) {
	if substring == "" {
		return 0, nil
	}
	v.s.refMu.Lock()
	defer v.s.refMu.Unlock()
	var changed int64
	for i, rule := range v.s.rules {
		if !strings.Contains(rule.ButtonLabel, substring) {
			continue
		}
		v.s.rules[i].ButtonLabel = strings.TrimSpace(strings.ReplaceAll(rule.ButtonLabel, substring, ""))
		changed++
	}
	return changed, nil
}

type catalogView struct {
	s *Store
}

func (v catalogView) StatusName(_ context.Context, id int64) (string, bool, error) {
	v.s.refMu.RLock()
	defer v.s.refMu.RUnlock()
	status, ok := v.s.statuses[id]
	return status.Name, ok, nil
}

func (v catalogView) RoleName(_ context.Context, id int64) (string, bool, error) {
	v.s.refMu.RLock()
	defer v.s.refMu.RUnlock()
	role, ok := v.s.roles[id]
	return role.Name, ok, nil
}

func (v catalogView) ListStatuses(_ context.Context) ([]domain.Status, error) {
	v.s.refMu.RLock()
	defer v.s.refMu.RUnlock()
	result := make([]domain.Status, 0, len(v.s.statuses))
	for _, status := range v.s.statuses {
		result = append(result, status)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (v catalogView) ListRoles(_ context.Context) ([]domain.Role, error) {
	v.s.refMu.RLock()
	defer v.s.refMu.RUnlock()
	result := make([]domain.Role, 0, len(v.s.roles))
	for _, role := range v.s.roles {
		result = append(result, role)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type notificationView struct {
	s *Store
}

func (v notificationView) Create(_ context.Context, n *domain.Notification) error {
	v.s.notifyMu.Lock()
	defer v.s.notifyMu.Unlock()
	if v.s.notifyErr != nil {
		return v.s.notifyErr
	}
	v.s.nextNotifyID++
	n.ID = v.s.nextNotifyID
	v.s.notifications = append(v.s.notifications, *n)
	return nil
}

func (v notificationView) ListByTicket(_ context.Context, ticketID int64) ([]domain.Notification, error) {
	v.s.notifyMu.Lock()
	defer v.s.notifyMu.Unlock()
	var result []domain.Notification
	for _, n := range v.s.notifications {
		if n.TicketID == ticketID {
			result = append(result, n)
		}
	}
	return result, nil
}

func cloneTicket(t domain.Ticket) *domain.Ticket {
	t.RoleID = cloneID(t.RoleID)
	return &t
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

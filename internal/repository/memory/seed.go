package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// Seed is the YAML fixture format used to populate a Store.
type Seed struct {
	Statuses []struct {
		ID    int64  `yaml:"id"`
		Name  string `yaml:"name"`
		Color string `yaml:"color"`
	} `yaml:"statuses"`
	Roles []struct {
		ID   int64  `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"roles"`
	TicketTypes []struct {
		ID   int64  `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"ticket_types"`
	Rules []struct {
		ID          int64  `yaml:"id"`
		From        int64  `yaml:"from"`
		TicketType  int64  `yaml:"ticket_type"`
		Next        int64  `yaml:"next"`
		ActorRole   int64  `yaml:"actor_role"`
		TargetRole  int64  `yaml:"target_role"`
		ButtonLabel string `yaml:"label"`
	} `yaml:"rules"`
	Tickets []struct {
		ID        int64  `yaml:"id"`
		Status    int64  `yaml:"status"`
		Type      int64  `yaml:"type"`
		Title     string `yaml:"title"`
		Role      int64  `yaml:"role"`
		CreatedBy string `yaml:"created_by"`
	} `yaml:"tickets"`
}

// ParseSeed decodes a YAML fixture.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	ids := make(map[int64]bool, len(seed.Rules))
	for i, rule := range seed.Rules {
		if rule.From <= 0 || rule.Next <= 0 {
			return nil, fmt.Errorf("seed rule %d: from and next must be positive", i)
		}
		if rule.ID < 0 {
			return nil, fmt.Errorf("seed rule %d: id must not be negative", i)
		}
		if rule.ID > 0 {
			if ids[rule.ID] {
				return nil, fmt.Errorf("seed rule %d: duplicate id %d", i, rule.ID)
			}
			ids[rule.ID] = true
		}
	}
	return &seed, nil
}

// LoadSeedFile builds a Store from the YAML fixture at path.
func LoadSeedFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	store := NewStore()
	if err := store.Apply(seed); err != nil {
		return nil, err
	}
	return store, nil
}

// Apply loads every row of the seed into the store. Rules with explicit ids
// are added first so implicit ids are assigned around them.
func (s *Store) Apply(seed *Seed) error {
	for _, st := range seed.Statuses {
		s.AddStatus(domain.Status{ID: st.ID, Name: st.Name, Color: st.Color})
	}
	for _, r := range seed.Roles {
		s.AddRole(domain.Role{ID: r.ID, Name: r.Name})
	}
	for _, tt := range seed.TicketTypes {
		s.AddTicketType(domain.TicketType{ID: tt.ID, Name: tt.Name})
	}
	for _, explicit := range []bool{true, false} {
		for _, r := range seed.Rules {
			if (r.ID > 0) != explicit {
				continue
			}
			if _, err := s.AddRule(domain.TransitionRule{
				ID:           r.ID,
				FromStatusID: r.From,
				TicketTypeID: r.TicketType,
				NextStatusID: r.Next,
				ActorRoleID:  r.ActorRole,
				TargetRoleID: r.TargetRole,
				ButtonLabel:  r.ButtonLabel,
			}); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}
	}
	for _, t := range seed.Tickets {
		ticket := domain.Ticket{
			ID:        t.ID,
			StatusID:  t.Status,
			TypeID:    t.Type,
			Title:     t.Title,
			CreatedBy: t.CreatedBy,
		}
		if t.Role > 0 {
			role := t.Role
			ticket.RoleID = &role
		}
		s.AddTicket(ticket)
	}
	return nil
}

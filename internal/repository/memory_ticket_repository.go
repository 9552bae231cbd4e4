package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

type memoryTicket struct {
	ticket *domain.Ticket
	seq    int64
}

// memoryTicketRepository keeps tickets in process memory with the same revision
// semantics as the Postgres store.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]memoryTicket
	seq     int64
}

// NewMemoryTicketRepository returns an empty in-memory ticket store.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]memoryTicket)}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prepareForInsert(ticket)
	if _, taken := r.tickets[ticket.ID]; taken {
		return ErrDuplicate
	}
	for _, stored := range r.tickets {
		if stored.ticket.TicketKey == ticket.TicketKey {
			return ErrDuplicate
		}
	}
	r.seq++
	r.tickets[ticket.ID] = memoryTicket{ticket: ticket.Clone(), seq: r.seq}
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return stored.ticket.Clone(), nil
}

func (r *memoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.ticket.Revision != ticket.Revision {
		return ErrRevisionConflict
	}
	if ticket.Reviews == nil {
		ticket.Reviews = []domain.Review{}
	}
	ticket.Revision++
	ticket.UpdatedAt = time.Now().UTC()

	next := ticket.Clone()
	next.OwnerID = stored.ticket.OwnerID
	next.TicketKey = stored.ticket.TicketKey
	next.CreatedAt = stored.ticket.CreatedAt
	r.tickets[ticket.ID] = memoryTicket{ticket: next, seq: stored.seq}
	return nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(r.tickets, id)
	return nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	matches := make([]memoryTicket, 0, len(r.tickets))
	for _, stored := range r.tickets {
		if filter.Matches(stored.ticket) {
			matches = append(matches, stored)
		}
	}
	r.mu.RUnlock()

	// newest first; insertion order breaks ties
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.ticket.CreatedAt.Equal(b.ticket.CreatedAt) {
			return a.seq > b.seq
		}
		return a.ticket.CreatedAt.After(b.ticket.CreatedAt)
	})

	result := make([]domain.Ticket, 0, len(matches))
	for _, stored := range matches {
		result = append(result, *stored.ticket.Clone())
	}
	return result, nil
}

func (r *memoryTicketRepository) ListCreatedAt(_ context.Context) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]time.Time, 0, len(r.tickets))
	for _, stored := range r.tickets {
		result = append(result, stored.ticket.CreatedAt)
	}
	return result, nil
}

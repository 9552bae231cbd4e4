package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// TicketFilter narrows ticket listings. Nil fields match everything.
type TicketFilter struct {
	OwnerID    *string
	AssigneeID *string
}

// Matches reports whether ticket satisfies the filter.
func (f TicketFilter) Matches(ticket *domain.Ticket) bool {
	if f.OwnerID != nil && ticket.OwnerID != *f.OwnerID {
		return false
	}
	if f.AssigneeID != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *f.AssigneeID) {
		return false
	}
	return true
}

// TicketRepository encapsulates ticket persistence. Reviews are stored with their ticket.
//
// Update is a compare-and-swap on Revision: it fails with ErrRevisionConflict when the
// stored revision differs from ticket.Revision, and bumps ticket.Revision on success.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListCreatedAt(ctx context.Context) ([]time.Time, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_key, owner_id, subject, description, category, status,
               assigned_to, reviews, revision, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, ticket_key, owner_id, subject, description, category, status,
                             assigned_to, reviews, revision, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`

	prepareForInsert(ticket)
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.TicketKey,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.AssignedTo,
		ticket.Reviews,
		ticket.Revision,
		ticket.CreatedAt,
	)
	return translatePgError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
	if err != nil {
		return nil, translatePgError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, category=$3, status=$4, assigned_to=$5,
            reviews=$6, revision=revision+1, updated_at=$7
        WHERE id=$8 AND revision=$9`

	if ticket.Reviews == nil {
		ticket.Reviews = []domain.Review{}
	}
	now := time.Now().UTC()
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.AssignedTo,
		ticket.Reviews,
		now,
		ticket.ID,
		ticket.Revision,
	)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrRevisionConflict
	}
	ticket.Revision++
	ticket.UpdatedAt = now
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListCreatedAt(ctx context.Context) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT created_at FROM tickets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []time.Time{}
	for rows.Next() {
		var createdAt time.Time
		if err := rows.Scan(&createdAt); err != nil {
			return nil, err
		}
		result = append(result, createdAt)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketKey,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.Reviews,
		&ticket.Revision,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ticket.Reviews == nil {
		ticket.Reviews = []domain.Review{}
	}
	return &ticket, nil
}

func prepareForInsert(ticket *domain.Ticket) {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	if ticket.Reviews == nil {
		ticket.Reviews = []domain.Review{}
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Revision = 1
}

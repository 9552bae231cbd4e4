package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

func newTicket(owner, key string) *domain.Ticket {
	return &domain.Ticket{
		TicketKey:   key,
		OwnerID:     owner,
		Subject:     "Lost bag",
		Description: "Bag missing after landing",
		Category:    domain.CategoryLostBaggage,
	}
}

func TestMemoryTicketRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create_Defaults", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		ticket := newTicket("u1", "TCK-1")

		require.NoError(t, repo.Create(ctx, ticket))
		assert.NotEmpty(t, ticket.ID)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Equal(t, int64(1), ticket.Revision)
		assert.NotNil(t, ticket.Reviews)
		assert.Nil(t, ticket.AssignedTo)
	})

	t.Run("Create_DuplicateKey", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		require.NoError(t, repo.Create(ctx, newTicket("u1", "TCK-1")))
		assert.ErrorIs(t, repo.Create(ctx, newTicket("u2", "TCK-1")), ErrDuplicate)
	})

	t.Run("GetByID_ReturnsCopy", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		ticket := newTicket("u1", "TCK-1")
		require.NoError(t, repo.Create(ctx, ticket))

		loaded, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		loaded.Subject = "changed"
		loaded.Reviews = append(loaded.Reviews, domain.Review{ID: "r1"})

		again, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lost bag", again.Subject)
		assert.Empty(t, again.Reviews)
	})

	t.Run("Update_RevisionCheck", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		ticket := newTicket("u1", "TCK-1")
		require.NoError(t, repo.Create(ctx, ticket))

		first, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		second, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)

		first.Reviews = append(first.Reviews, domain.Review{ID: "r1", Text: "R1"})
		require.NoError(t, repo.Update(ctx, first))
		assert.Equal(t, int64(2), first.Revision)

		second.Reviews = append(second.Reviews, domain.Review{ID: "r2", Text: "R2"})
		assert.ErrorIs(t, repo.Update(ctx, second), ErrRevisionConflict)

		stored, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		require.Len(t, stored.Reviews, 1)
		assert.Equal(t, "R1", stored.Reviews[0].Text)
	})

	t.Run("Update_Missing", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		assert.ErrorIs(t, repo.Update(ctx, &domain.Ticket{ID: "nope"}), ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		ticket := newTicket("u1", "TCK-1")
		require.NoError(t, repo.Create(ctx, ticket))

		require.NoError(t, repo.Delete(ctx, ticket.ID))
		assert.ErrorIs(t, repo.Delete(ctx, ticket.ID), ErrNotFound)
		_, err := repo.GetByID(ctx, ticket.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List_FilterAndOrder", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		older := newTicket("u1", "TCK-1")
		older.CreatedAt = base
		newer := newTicket("u1", "TCK-2")
		newer.CreatedAt = base.Add(time.Hour)
		foreign := newTicket("u2", "TCK-3")
		admin := "a1"
		foreign.AssignedTo = &admin
		require.NoError(t, repo.Create(ctx, older))
		require.NoError(t, repo.Create(ctx, newer))
		require.NoError(t, repo.Create(ctx, foreign))

		owner := "u1"
		mine, err := repo.List(ctx, TicketFilter{OwnerID: &owner})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "TCK-2", mine[0].TicketKey)
		assert.Equal(t, "TCK-1", mine[1].TicketKey)

		assigned, err := repo.List(ctx, TicketFilter{AssigneeID: &admin})
		require.NoError(t, err)
		require.Len(t, assigned, 1)
		assert.Equal(t, "TCK-3", assigned[0].TicketKey)

		all, err := repo.List(ctx, TicketFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		created, err := repo.ListCreatedAt(ctx)
		require.NoError(t, err)
		assert.Len(t, created, 3)
	})
}

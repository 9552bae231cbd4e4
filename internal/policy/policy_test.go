package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

var (
	owner    = domain.Identity{ID: "owner", Role: domain.RoleUser}
	stranger = domain.Identity{ID: "stranger", Role: domain.RoleUser}
	admin    = domain.Identity{ID: "admin", Role: domain.RoleAdmin}
	ticket   = &domain.Ticket{ID: "t-1", OwnerID: "owner"}
)

func TestCanTicket(t *testing.T) {
	p := New()

	cases := []struct {
		name     string
		identity domain.Identity
		action   Action
		ticket   *domain.Ticket
		want     bool
	}{
		{"anyone creates", stranger, ActionCreateTicket, nil, true},
		{"anonymous cannot create", domain.Identity{}, ActionCreateTicket, nil, false},
		{"owner reads", owner, ActionReadTicket, ticket, true},
		{"admin reads", admin, ActionReadTicket, ticket, true},
		{"stranger cannot read", stranger, ActionReadTicket, ticket, false},
		{"owner updates", owner, ActionUpdateTicket, ticket, true},
		{"stranger cannot update", stranger, ActionUpdateTicket, ticket, false},
		{"admin deletes", admin, ActionDeleteTicket, ticket, true},
		{"stranger cannot delete", stranger, ActionDeleteTicket, ticket, false},
		{"owner cannot assign", owner, ActionAssignTicket, ticket, false},
		{"admin assigns", admin, ActionAssignTicket, ticket, true},
		{"user cannot list all", owner, ActionListAll, nil, false},
		{"admin views stats", admin, ActionViewStats, nil, true},
		{"owner reviews", owner, ActionAddReview, ticket, true},
		{"stranger cannot review", stranger, ActionAddReview, ticket, false},
		{"missing ticket", admin, ActionUpdateTicket, nil, false},
		{"unknown action", admin, Action("ticket:explode"), ticket, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.CanTicket(tc.identity, tc.action, tc.ticket))
		})
	}
}

func TestCanReview(t *testing.T) {
	p := New()
	review := &domain.Review{ID: "r-1", AuthorID: "stranger"}

	assert.True(t, p.CanReview(stranger, ActionEditReview, review))
	assert.True(t, p.CanReview(admin, ActionRemoveReview, review))
	assert.False(t, p.CanReview(owner, ActionEditReview, review))
	assert.False(t, p.CanReview(owner, ActionRemoveReview, nil))
	assert.False(t, p.CanReview(stranger, ActionAddReview, review))
}

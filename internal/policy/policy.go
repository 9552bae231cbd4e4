// Package policy holds the per-operation authorization rules for tickets and reviews.
package policy

import "github.com/helpdeskhq/support-desk/internal/domain"

// Action names an operation checked by the policy.
type Action string

const (
	ActionReadTicket   Action = "ticket:read"
	ActionCreateTicket Action = "ticket:create"
	ActionUpdateTicket Action = "ticket:update"
	ActionDeleteTicket Action = "ticket:delete"
	ActionAssignTicket Action = "ticket:assign"
	ActionListAll      Action = "ticket:list_all"
	ActionViewStats    Action = "ticket:stats"
	ActionAddReview    Action = "review:create"
	ActionEditReview   Action = "review:update"
	ActionRemoveReview Action = "review:delete"
)

// Policy decides whether a caller may perform an action on a ticket.
type Policy struct{}

// New returns the ticket policy.
func New() *Policy {
	return &Policy{}
}

// CanTicket reports whether identity may perform action on ticket. ticket may be nil
// for actions that do not target a specific record.
func (p *Policy) CanTicket(identity domain.Identity, action Action, ticket *domain.Ticket) bool {
	if identity.ID == "" {
		return false
	}
	switch action {
	case ActionCreateTicket:
		return true
	case ActionAssignTicket, ActionListAll, ActionViewStats:
		return identity.IsAdmin()
	case ActionReadTicket, ActionUpdateTicket, ActionDeleteTicket, ActionAddReview:
		return ticket != nil && (identity.IsAdmin() || ticket.OwnerID == identity.ID)
	default:
		return false
	}
}

// CanReview reports whether identity may edit or remove review.
// Only the review author or an admin qualifies.
func (p *Policy) CanReview(identity domain.Identity, action Action, review *domain.Review) bool {
	if identity.ID == "" || review == nil {
		return false
	}
	switch action {
	case ActionEditReview, ActionRemoveReview:
		return identity.IsAdmin() || review.AuthorID == identity.ID
	default:
		return false
	}
}

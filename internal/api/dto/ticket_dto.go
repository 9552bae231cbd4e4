package dto

import (
	"time"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
}

// UpdateTicketRequest lists the patchable fields. Anything else in the body is ignored.
type UpdateTicketRequest struct {
	Subject     *string                `json:"subject"`
	Description *string                `json:"description"`
	Category    *domain.TicketCategory `json:"category"`
	Status      *domain.TicketStatus   `json:"status"`
}

// Patch converts the request into a domain patch.
func (r UpdateTicketRequest) Patch() domain.TicketPatch {
	return domain.TicketPatch{
		Subject:     r.Subject,
		Description: r.Description,
		Category:    r.Category,
		Status:      r.Status,
	}
}

// AssignTicketRequest optionally names another admin. Empty means the caller.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ReviewRequest payload for creating or editing a review.
type ReviewRequest struct {
	Text string `json:"text"`
}

// TicketResponse is the ticket shape shared by list and detail endpoints.
// Customer-facing endpoints carry the owner as "customer"; admin endpoints carry it as "user".
type TicketResponse struct {
	ID            string                `json:"id"`
	TicketKey     string                `json:"ticket_key"`
	CustomerID    string                `json:"customer_id"`
	Customer      *UserSummary          `json:"customer,omitempty"`
	User          *UserSummary          `json:"user,omitempty"`
	Subject       string                `json:"subject"`
	Description   string                `json:"description"`
	Category      domain.TicketCategory `json:"category"`
	Status        domain.TicketStatus   `json:"status"`
	AssignedToID  *string               `json:"assigned_to_id"`
	AssignedTo    *UserSummary          `json:"assigned_to,omitempty"`
	ManagingAdmin *UserSummary          `json:"managing_admin,omitempty"`
	Reviews       []ReviewResponse      `json:"reviews"`
	Revision      int64                 `json:"revision"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ReviewResponse is a review with its author resolved when known.
type ReviewResponse struct {
	ID        string        `json:"id"`
	AuthorID  string        `json:"author_id"`
	Author    *UserResponse `json:"author,omitempty"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// MessageResponse confirms an operation that returns no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatsResponse carries parallel label and count arrays.
type StatsResponse struct {
	GroupBy domain.StatsPeriod `json:"group_by"`
	Labels  []string           `json:"labels"`
	Data    []int              `json:"data"`
}

// NewTicketResponse projects a ticket. authors may be nil when review authors are not resolved.
func NewTicketResponse(ticket *domain.Ticket, customer, assignee, managingAdmin *domain.User, authors map[string]*domain.User) TicketResponse {
	reviews := make([]ReviewResponse, 0, len(ticket.Reviews))
	for _, review := range ticket.Reviews {
		reviews = append(reviews, NewReviewResponse(review, authors[review.AuthorID]))
	}
	return TicketResponse{
		ID:            ticket.ID,
		TicketKey:     ticket.TicketKey,
		CustomerID:    ticket.OwnerID,
		Customer:      SummaryRef(customer),
		Subject:       ticket.Subject,
		Description:   ticket.Description,
		Category:      ticket.Category,
		Status:        ticket.Status,
		AssignedToID:  ticket.AssignedTo,
		AssignedTo:    SummaryRef(assignee),
		ManagingAdmin: SummaryRef(managingAdmin),
		Reviews:       reviews,
		Revision:      ticket.Revision,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// AsAdminView moves the owner from "customer" to "user".
func (r TicketResponse) AsAdminView() TicketResponse {
	r.User, r.Customer = r.Customer, nil
	return r
}

// NewReviewResponse projects a review.
func NewReviewResponse(review domain.Review, author *domain.User) ReviewResponse {
	return ReviewResponse{
		ID:        review.ID,
		AuthorID:  review.AuthorID,
		Author:    UserRef(author),
		Text:      review.Text,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}

package events

import (
	"time"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
	EventTicketDeleted  EventType = "ticket_deleted"
	EventTicketAssigned EventType = "ticket_assigned"
	EventReviewAdded    EventType = "review_added"
	EventReviewUpdated  EventType = "review_updated"
	EventReviewRemoved  EventType = "review_removed"
)

// AllTicketEvents lists every event the ticket service publishes.
func AllTicketEvents() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketUpdated,
		EventTicketDeleted,
		EventTicketAssigned,
		EventReviewAdded,
		EventReviewUpdated,
		EventReviewRemoved,
	}
}

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketKey string                `json:"ticket_key"`
	Category  domain.TicketCategory `json:"category"`
	Subject   string                `json:"subject"`
}

// TicketUpdatedPayload lists the fields a patch touched.
type TicketUpdatedPayload struct {
	Fields    []string            `json:"fields"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// ReviewPayload identifies the affected review.
type ReviewPayload struct {
	ReviewID    string `json:"review_id"`
	TextPreview string `json:"text_preview,omitempty"`
}

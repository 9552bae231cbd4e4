package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Any transition is allowed.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

var ticketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range ticketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketCategory enumerates the fixed support categories.
type TicketCategory string

const (
	CategoryDelayedFlight       TicketCategory = "Delayed Flight"
	CategoryCanceledFlight      TicketCategory = "Canceled Flight"
	CategoryMissedConnection    TicketCategory = "Missed Connection"
	CategoryLostBaggage         TicketCategory = "Lost Baggage"
	CategoryDamagedBaggage      TicketCategory = "Damaged Baggage"
	CategoryDelayedBaggage      TicketCategory = "Delayed Baggage"
	CategoryIncorrectBooking    TicketCategory = "Incorrect Booking Details"
	CategoryRefund              TicketCategory = "Refund & Compensation"
	CategorySeatAssignment      TicketCategory = "Seat Assignment Issue"
	CategoryUncomfortableSeats  TicketCategory = "Uncomfortable Seats"
	CategoryFoodCatering        TicketCategory = "Food & Catering Issue"
	CategoryRestroomCleanliness TicketCategory = "Restroom & Cleanliness"
	CategoryRudeStaff           TicketCategory = "Rude Staff"
	CategoryCustomerService     TicketCategory = "Customer Service Complaint"
	CategoryOnlineCheckIn       TicketCategory = "Online Check-in Problem"
	CategoryAppOrWebsite        TicketCategory = "App or Website Issue"
	CategoryDisabilityAssist    TicketCategory = "Disability Assistance"
	CategoryInfantChild         TicketCategory = "Infant & Child Services"
	CategoryBilling             TicketCategory = "Billing"
	CategoryOther               TicketCategory = "Other"
)

var ticketCategories = []TicketCategory{
	CategoryDelayedFlight,
	CategoryCanceledFlight,
	CategoryMissedConnection,
	CategoryLostBaggage,
	CategoryDamagedBaggage,
	CategoryDelayedBaggage,
	CategoryIncorrectBooking,
	CategoryRefund,
	CategorySeatAssignment,
	CategoryUncomfortableSeats,
	CategoryFoodCatering,
	CategoryRestroomCleanliness,
	CategoryRudeStaff,
	CategoryCustomerService,
	CategoryOnlineCheckIn,
	CategoryAppOrWebsite,
	CategoryDisabilityAssist,
	CategoryInfantChild,
	CategoryBilling,
	CategoryOther,
}

// Valid reports whether c is one of the fixed categories.
func (c TicketCategory) Valid() bool {
	for _, candidate := range ticketCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// TicketCategories returns the fixed category list in display order.
func TicketCategories() []TicketCategory {
	return append([]TicketCategory(nil), ticketCategories...)
}

// Ticket is the aggregate for support requests. Reviews are owned by the ticket
// and persisted with it; Revision increments on every successful write.
type Ticket struct {
	ID          string
	TicketKey   string
	OwnerID     string
	Subject     string
	Description string
	Category    TicketCategory
	Status      TicketStatus
	AssignedTo  *string
	Reviews     []Review
	Revision    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Review is a comment in a ticket thread. IDs are unique within the parent ticket.
type Review struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FindReview returns the index of the review with the given id, or -1.
func (t *Ticket) FindReview(id string) int {
	for i := range t.Reviews {
		if t.Reviews[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to mutate independently.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		cp.AssignedTo = &assignee
	}
	cp.Reviews = append([]Review(nil), t.Reviews...)
	return &cp
}

// TicketPatch lists the fields an update may change. Nil fields are left untouched.
type TicketPatch struct {
	Subject     *string
	Description *string
	Category    *TicketCategory
	Status      *TicketStatus
}

// Empty reports whether the patch changes nothing.
func (p TicketPatch) Empty() bool {
	return p.Subject == nil && p.Description == nil && p.Category == nil && p.Status == nil
}

// Apply writes the non-nil patch fields onto the ticket.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdeskhq/support-desk/internal/domain"
	"github.com/helpdeskhq/support-desk/internal/events"
	"github.com/helpdeskhq/support-desk/internal/policy"
	"github.com/helpdeskhq/support-desk/internal/repository"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

// maxWriteAttempts bounds the read-modify-write retries on revision conflicts.
const maxWriteAttempts = 3

// TicketService coordinates ticket and review workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	policy     *policy.Policy
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Policy     *policy.Policy
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Category    domain.TicketCategory
}

// TicketView is a ticket with its user references resolved.
type TicketView struct {
	Ticket        *domain.Ticket
	Owner         *domain.User
	Assignee      *domain.User
	Authors       map[string]*domain.User
	ManagingAdmin *domain.User
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	svc := &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if svc.policy == nil {
		svc.policy = policy.New()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc
}

// ListMine returns the caller's tickets, or every ticket for admins, newest first.
func (s *TicketService) ListMine(ctx context.Context, identity domain.Identity) ([]TicketView, error) {
	filter := repository.TicketFilter{}
	if !identity.IsAdmin() {
		filter.OwnerID = &identity.ID
	}
	return s.listViews(ctx, filter)
}

// ListAll returns every ticket. Admin only.
func (s *TicketService) ListAll(ctx context.Context, identity domain.Identity) ([]TicketView, error) {
	if !s.policy.CanTicket(identity, policy.ActionListAll, nil) {
		return nil, apperrors.NewForbidden("admin role required")
	}
	return s.listViews(ctx, repository.TicketFilter{})
}

// ListAssignedToMe returns tickets assigned to the calling admin.
func (s *TicketService) ListAssignedToMe(ctx context.Context, identity domain.Identity) ([]TicketView, error) {
	if !s.policy.CanTicket(identity, policy.ActionListAll, nil) {
		return nil, apperrors.NewForbidden("admin role required")
	}
	return s.listViews(ctx, repository.TicketFilter{AssigneeID: &identity.ID})
}

// GetMine returns a single ticket with owner, assignee and review authors resolved.
// Unassigned tickets carry the first admin as managing admin.
func (s *TicketService) GetMine(ctx context.Context, identity domain.Identity, ticketID string) (*TicketView, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanTicket(identity, policy.ActionReadTicket, ticket) {
		return nil, apperrors.NewForbidden("you are not authorized to view this ticket")
	}
	view, err := s.detailView(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if ticket.AssignedTo == nil {
		admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if len(admins) > 0 {
			view.ManagingAdmin = &admins[0]
		}
	}
	return view, nil
}

// Create files a ticket owned by the caller.
func (s *TicketService) Create(ctx context.Context, identity domain.Identity, input TicketCreateInput) (*TicketView, error) {
	if !s.policy.CanTicket(identity, policy.ActionCreateTicket, nil) {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": identity.ID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	var ticket *domain.Ticket
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		ticket = &domain.Ticket{
			TicketKey:   generateTicketKey(),
			OwnerID:     owner.ID,
			Subject:     input.Subject,
			Description: input.Description,
			Category:    input.Category,
			Status:      domain.TicketStatusOpen,
			CreatedAt:   s.now(),
		}
		err = s.tickets.Create(ctx, ticket)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, identity, ticket.ID, events.EventTicketCreated, events.TicketCreatedPayload{
		TicketKey: ticket.TicketKey,
		Category:  ticket.Category,
		Subject:   ticket.Subject,
	})
	return &TicketView{Ticket: ticket, Owner: owner}, nil
}

// Update applies a whitelisted patch. Owner or admin only.
func (s *TicketService) Update(ctx context.Context, identity domain.Identity, ticketID string, patch domain.TicketPatch) (*TicketView, error) {
	patch = trimPatch(patch)
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	ticket, err := s.mutateTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if !s.policy.CanTicket(identity, policy.ActionUpdateTicket, ticket) {
			return false, apperrors.NewForbidden("you are not allowed to update this ticket")
		}
		if patch.Empty() {
			return false, nil
		}
		patch.Apply(ticket)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if !patch.Empty() {
		s.publishEvent(ctx, identity, ticket.ID, events.EventTicketUpdated, events.TicketUpdatedPayload{
			Fields:    patchedFields(patch),
			NewStatus: ticket.Status,
		})
	}
	return s.detailView(ctx, ticket)
}

// Delete removes a ticket and returns the removed record. Owner or admin only.
func (s *TicketService) Delete(ctx context.Context, identity domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanTicket(identity, policy.ActionDeleteTicket, ticket) {
		return nil, apperrors.NewForbidden("you are not allowed to delete this ticket")
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return nil, s.mapTicketError(err, ticketID)
	}
	s.publishEvent(ctx, identity, ticket.ID, events.EventTicketDeleted, nil)
	return ticket, nil
}

// Assign sets the ticket assignee. Admin only. An empty assigneeID assigns the caller;
// any other target must be an admin account. Repeating an assignment is a no-op.
func (s *TicketService) Assign(ctx context.Context, identity domain.Identity, ticketID, assigneeID string) (*TicketView, error) {
	if !s.policy.CanTicket(identity, policy.ActionAssignTicket, &domain.Ticket{}) {
		return nil, apperrors.NewForbidden("admin role required")
	}

	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		assigneeID = identity.ID
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !assignee.IsAdmin() {
		return nil, apperrors.NewValidationError("tickets can only be assigned to admins", map[string]any{"assignee_id": assigneeID})
	}

	changed := false
	ticket, err := s.mutateTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if ticket.AssignedTo != nil && *ticket.AssignedTo == assignee.ID {
			return false, nil
		}
		id := assignee.ID
		ticket.AssignedTo = &id
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publishEvent(ctx, identity, ticket.ID, events.EventTicketAssigned, events.TicketAssignedPayload{AssigneeID: assignee.ID})
	}
	views, err := s.resolveViews(ctx, []domain.Ticket{*ticket})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// mutateTicket loads a ticket, applies fn and writes it back with a revision check.
// On a revision conflict the cycle restarts from a fresh read. fn returning false skips the write.
func (s *TicketService) mutateTicket(ctx context.Context, ticketID string, fn func(*domain.Ticket) (bool, error)) (*domain.Ticket, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		ticket, err := s.loadTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		changed, err := fn(ticket)
		if err != nil {
			return nil, err
		}
		if !changed {
			return ticket, nil
		}
		err = s.tickets.Update(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrRevisionConflict) {
			return nil, s.mapTicketError(err, ticketID)
		}
		s.logger.Debug("ticket revision conflict; retrying",
			zap.String("ticket_id", ticketID),
			zap.Int("attempt", attempt+1))
	}
	return nil, apperrors.NewConflict("ticket was modified concurrently; retry the request", map[string]any{"ticket_id": ticketID})
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, s.mapTicketError(err, ticketID)
	}
	return ticket, nil
}

func (s *TicketService) mapTicketError(err error, ticketID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.NewInternalError(err)
}

func (s *TicketService) listViews(ctx context.Context, filter repository.TicketFilter) ([]TicketView, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return s.resolveViews(ctx, tickets)
}

// resolveViews attaches owner and assignee accounts with a single user lookup.
func (s *TicketService) resolveViews(ctx context.Context, tickets []domain.Ticket) ([]TicketView, error) {
	ids := make([]string, 0, len(tickets)*2)
	for _, ticket := range tickets {
		ids = append(ids, ticket.OwnerID)
		if ticket.AssignedTo != nil {
			ids = append(ids, *ticket.AssignedTo)
		}
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		view := TicketView{Ticket: ticket, Owner: users[ticket.OwnerID]}
		if ticket.AssignedTo != nil {
			view.Assignee = users[*ticket.AssignedTo]
		}
		views = append(views, view)
	}
	return views, nil
}

// detailView resolves owner, assignee and review authors, and sorts reviews oldest first.
func (s *TicketService) detailView(ctx context.Context, ticket *domain.Ticket) (*TicketView, error) {
	sortReviews(ticket.Reviews)

	ids := []string{ticket.OwnerID}
	if ticket.AssignedTo != nil {
		ids = append(ids, *ticket.AssignedTo)
	}
	for _, review := range ticket.Reviews {
		ids = append(ids, review.AuthorID)
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &TicketView{
		Ticket:  ticket,
		Owner:   users[ticket.OwnerID],
		Authors: make(map[string]*domain.User, len(ticket.Reviews)),
	}
	if ticket.AssignedTo != nil {
		view.Assignee = users[*ticket.AssignedTo]
	}
	for _, review := range ticket.Reviews {
		if author, ok := users[review.AuthorID]; ok {
			view.Authors[review.AuthorID] = author
		}
	}
	return view, nil
}

func (s *TicketService) usersByID(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	users, err := s.users.ListByIDs(ctx, unique)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	byID := make(map[string]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return byID, nil
}

func (s *TicketService) publishEvent(ctx context.Context, identity domain.Identity, ticketID string, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: identity.ID, Role: identity.Role},
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func sortReviews(reviews []domain.Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
	})
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func validateCreate(input TicketCreateInput) error {
	details := map[string]any{}
	if input.Subject == "" {
		details["subject"] = "required"
	}
	if input.Description == "" {
		details["description"] = "required"
	}
	if !input.Category.Valid() {
		details["category"] = "must be one of the support categories"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket payload", details)
	}
	return nil
}

func trimPatch(patch domain.TicketPatch) domain.TicketPatch {
	if patch.Subject != nil {
		subject := strings.TrimSpace(*patch.Subject)
		patch.Subject = &subject
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		patch.Description = &description
	}
	return patch
}

func validatePatch(patch domain.TicketPatch) error {
	details := map[string]any{}
	if patch.Subject != nil && *patch.Subject == "" {
		details["subject"] = "must not be empty"
	}
	if patch.Description != nil && *patch.Description == "" {
		details["description"] = "must not be empty"
	}
	if patch.Category != nil && !patch.Category.Valid() {
		details["category"] = "must be one of the support categories"
	}
	if patch.Status != nil && !patch.Status.Valid() {
		details["status"] = "must be Open, In progress, Resolved or Closed"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket update", details)
	}
	return nil
}

func patchedFields(patch domain.TicketPatch) []string {
	fields := []string{}
	if patch.Subject != nil {
		fields = append(fields, "subject")
	}
	if patch.Description != nil {
		fields = append(fields, "description")
	}
	if patch.Category != nil {
		fields = append(fields, "category")
	}
	if patch.Status != nil {
		fields = append(fields, "status")
	}
	return fields
}

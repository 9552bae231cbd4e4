package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/helpdeskhq/support-desk/internal/domain"
	"github.com/helpdeskhq/support-desk/internal/events"
	"github.com/helpdeskhq/support-desk/internal/policy"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

const reviewPreviewLength = 80

// ReviewView is a review with its author account resolved.
type ReviewView struct {
	Review domain.Review
	Author *domain.User
}

// AddReview appends a review authored by the caller. Requires ticket visibility.
func (s *TicketService) AddReview(ctx context.Context, identity domain.Identity, ticketID, text string) (*ReviewView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("review text required", map[string]any{"text": "required"})
	}

	var added domain.Review
	ticket, err := s.mutateTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		if !s.policy.CanTicket(identity, policy.ActionAddReview, ticket) {
			return false, apperrors.NewForbidden("you are not allowed to review this ticket")
		}
		now := s.now()
		added = domain.Review{
			ID:        uuid.NewString(),
			AuthorID:  identity.ID,
			Text:      text,
			CreatedAt: now,
			UpdatedAt: now,
		}
		ticket.Reviews = append(ticket.Reviews, added)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, identity, ticket.ID, events.EventReviewAdded, events.ReviewPayload{
		ReviewID:    added.ID,
		TextPreview: preview(added.Text),
	})

	authors, err := s.usersByID(ctx, []string{added.AuthorID})
	if err != nil {
		return nil, err
	}
	return &ReviewView{Review: added, Author: authors[added.AuthorID]}, nil
}

// UpdateReview replaces the text of a review. Review author or admin only.
func (s *TicketService) UpdateReview(ctx context.Context, identity domain.Identity, ticketID, reviewID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidationError("review text required", map[string]any{"text": "required"})
	}

	_, err := s.mutateTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		idx, err := s.authorizeReview(identity, policy.ActionEditReview, ticket, reviewID)
		if err != nil {
			return false, err
		}
		ticket.Reviews[idx].Text = text
		ticket.Reviews[idx].UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, identity, ticketID, events.EventReviewUpdated, events.ReviewPayload{
		ReviewID:    reviewID,
		TextPreview: preview(text),
	})
	return nil
}

// RemoveReview deletes a review from its ticket. Review author or admin only.
func (s *TicketService) RemoveReview(ctx context.Context, identity domain.Identity, ticketID, reviewID string) error {
	_, err := s.mutateTicket(ctx, ticketID, func(ticket *domain.Ticket) (bool, error) {
		idx, err := s.authorizeReview(identity, policy.ActionRemoveReview, ticket, reviewID)
		if err != nil {
			return false, err
		}
		ticket.Reviews = append(ticket.Reviews[:idx], ticket.Reviews[idx+1:]...)
		return true, nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, identity, ticketID, events.EventReviewRemoved, events.ReviewPayload{ReviewID: reviewID})
	return nil
}

func (s *TicketService) authorizeReview(identity domain.Identity, action policy.Action, ticket *domain.Ticket, reviewID string) (int, error) {
	idx := ticket.FindReview(reviewID)
	if idx < 0 {
		return -1, apperrors.NewNotFound("review", map[string]any{"ticket_id": ticket.ID, "review_id": reviewID})
	}
	if !s.policy.CanReview(identity, action, &ticket.Reviews[idx]) {
		return -1, apperrors.NewForbidden("only the review author or an admin may change this review")
	}
	return idx, nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= reviewPreviewLength {
		return text
	}
	return string(runes[:reviewPreviewLength]) + "..."
}

// Package helpdesk defines the capability surface both ticketing backends
// implement, so callers never depend on a concrete backend.
package helpdesk

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/models"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrUserNotFound   = errors.New("user not found")
)

// BackendError wraps a non-2xx backend response that is neither a bad
// request nor a not-found.
type BackendError struct {
	Backend models.Backend
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend error (status %d): %s", e.Backend, e.Status, e.Message)
}

// BadRequestError wraps a backend 400, kept distinct so handlers can map
// it back to a 400 for the caller.
type BadRequestError struct {
	Backend models.Backend
	Message string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("%s rejected request: %s", e.Backend, e.Message)
}

// Manager is the backend capability interface. Every method returns a
// fully populated record or a typed error; there are no partial successes
// apart from the documented create-then-comment window on Halo.
type Manager interface {
	GetOrCreateUser(ctx context.Context, user models.User) (models.User, error)
	CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error)
	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	UpdateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error)
	AddComment(ctx context.Context, ticketID int64, comment models.Comment) (models.Ticket, error)
	ListComments(ctx context.Context, ticketID int64) ([]models.Comment, error)
}

// CloseTicket closes a ticket on any backend in terms of get+update.
// Closing an already closed ticket is a warning no-op, not an error.
func CloseTicket(ctx context.Context, m Manager, id int64, logger zerolog.Logger) (models.Ticket, error) {
	ticket, err := m.GetTicket(ctx, id)
	if err != nil {
		return models.Ticket{}, err
	}
	if ticket.Status == models.StatusClosed {
		logger.Warn().Int64("ticket_id", id).Msg("ticket already closed")
		return ticket, nil
	}
	ticket.Status = models.StatusClosed
	ticket.Comment = nil
	return m.UpdateTicket(ctx, ticket)
}

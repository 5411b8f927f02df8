package halo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/fieldmap"
	"github.com/deskbridge/backend/internal/helpdesk"
	"github.com/deskbridge/backend/internal/models"
	"github.com/deskbridge/backend/internal/transform"
)

// CommentFailedError reports the create-then-comment partial failure
// window: the ticket exists on Halo but its initial comment did not post.
// Nothing is rolled back; the caller can retry the comment.
type CommentFailedError struct {
	TicketID int64
	Err      error
}

func (e *CommentFailedError) Error() string {
	return fmt.Sprintf("ticket %d created but comment failed: %v", e.TicketID, e.Err)
}

func (e *CommentFailedError) Unwrap() error {
	return e.Err
}

// Manager implements the backend capability interface against Halo,
// orchestrating the REST client through the transformation layer.
type Manager struct {
	client *Client
	table  *fieldmap.Table
	logger zerolog.Logger
}

func NewManager(client *Client, table *fieldmap.Table, logger zerolog.Logger) *Manager {
	return &Manager{client: client, table: table, logger: logger}
}

func (m *Manager) GetOrCreateUser(ctx context.Context, user models.User) (models.User, error) {
	if !user.Resolvable() {
		return models.User{}, helpdesk.ErrUserNotFound
	}
	if user.ID != 0 {
		found, err := m.client.GetUser(ctx, user.ID)
		if err != nil {
			return models.User{}, mapError(err)
		}
		return userFromHalo(found), nil
	}

	matches, err := m.client.SearchUsers(ctx, user.Email)
	if err != nil {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return models.User{}, mapError(err)
		}
	}
	for _, match := range matches {
		if strings.EqualFold(match.EmailAddress, user.Email) {
			return userFromHalo(match), nil
		}
	}

	created, err := m.client.PostUser(ctx, transform.HaloUser{
		Name:         user.FullName,
		EmailAddress: user.Email,
	})
	if err != nil {
		return models.User{}, mapError(err)
	}
	return userFromHalo(created), nil
}

func (m *Manager) CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	resolved, err := m.resolveRequester(ctx, ticket)
	if err != nil {
		return models.Ticket{}, err
	}

	payload, err := transform.ToHaloTicket(resolved, m.table)
	if err != nil {
		return models.Ticket{}, err
	}
	created, err := m.client.PostTicket(ctx, payload)
	if err != nil {
		return models.Ticket{}, mapError(err)
	}

	result, err := transform.TicketFromHalo(created, m.table)
	if err != nil {
		return models.Ticket{}, err
	}
	result.Comment = resolved.Comment
	if !result.User.Resolvable() {
		result.User = resolved.User
	}

	// The ticket POST and the comment POST are separate calls; a comment
	// failure leaves the ticket in place.
	if resolved.Comment != nil && resolved.Comment.Body != "" {
		action, err := transform.CommentToHaloAction(created.ID, *resolved.Comment)
		if err != nil {
			return result, &CommentFailedError{TicketID: created.ID, Err: err}
		}
		if _, err := m.client.PostAction(ctx, action); err != nil {
			return result, &CommentFailedError{TicketID: created.ID, Err: mapError(err)}
		}
	}
	return result, nil
}

func (m *Manager) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	found, err := m.client.GetTicket(ctx, id)
	if err != nil {
		return models.Ticket{}, mapError(err)
	}
	ticket, err := transform.TicketFromHalo(found, m.table)
	if err != nil {
		return models.Ticket{}, err
	}

	actions, err := m.client.GetActions(ctx, id)
	if err != nil {
		m.logger.Warn().Err(err).Int64("ticket_id", id).Msg("fetch actions failed")
		return ticket, nil
	}
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Outcome == "comment" {
			comment := transform.CommentFromHaloAction(actions[i])
			ticket.Comment = &comment
			break
		}
	}
	return ticket, nil
}

func (m *Manager) UpdateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	if ticket.ID == 0 {
		return models.Ticket{}, helpdesk.ErrTicketNotFound
	}
	payload, err := transform.ToHaloTicket(ticket, m.table)
	if err != nil {
		return models.Ticket{}, err
	}
	updated, err := m.client.PostTicket(ctx, payload)
	if err != nil {
		return models.Ticket{}, mapError(err)
	}
	result, err := transform.TicketFromHalo(updated, m.table)
	if err != nil {
		return models.Ticket{}, err
	}
	result.Comment = ticket.Comment

	if ticket.Comment != nil && ticket.Comment.Body != "" {
		action, err := transform.CommentToHaloAction(updated.ID, *ticket.Comment)
		if err != nil {
			return result, &CommentFailedError{TicketID: updated.ID, Err: err}
		}
		if _, err := m.client.PostAction(ctx, action); err != nil {
			return result, &CommentFailedError{TicketID: updated.ID, Err: mapError(err)}
		}
	}
	return result, nil
}

func (m *Manager) AddComment(ctx context.Context, ticketID int64, comment models.Comment) (models.Ticket, error) {
	action, err := transform.CommentToHaloAction(ticketID, comment)
	if err != nil {
		return models.Ticket{}, err
	}
	if _, err := m.client.PostAction(ctx, action); err != nil {
		return models.Ticket{}, mapError(err)
	}
	return m.GetTicket(ctx, ticketID)
}

func (m *Manager) ListComments(ctx context.Context, ticketID int64) ([]models.Comment, error) {
	actions, err := m.client.GetActions(ctx, ticketID)
	if err != nil {
		return nil, mapError(err)
	}
	var comments []models.Comment
	for _, a := range actions {
		if a.Outcome == "comment" {
			comments = append(comments, transform.CommentFromHaloAction(a))
		}
	}
	return comments, nil
}

// resolveRequester fills in the requester's Halo user id when the user
// already exists. An unmatched requester keeps name and email on the
// ticket payload so Halo creates the user inline.
func (m *Manager) resolveRequester(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	if ticket.User.ID != 0 || ticket.User.Email == "" {
		return ticket, nil
	}
	matches, err := m.client.SearchUsers(ctx, ticket.User.Email)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return ticket, nil
		}
		return models.Ticket{}, mapError(err)
	}
	for _, match := range matches {
		if strings.EqualFold(match.EmailAddress, ticket.User.Email) {
			ticket.User.ID = match.ID
			break
		}
	}
	return ticket, nil
}

func userFromHalo(u transform.HaloUser) models.User {
	return models.User{ID: u.ID, FullName: u.Name, Email: u.EmailAddress}
}

func mapError(err error) error {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		if notFound.Status == 404 {
			return fmt.Errorf("%w: %v", helpdesk.ErrTicketNotFound, err)
		}
		return &helpdesk.BackendError{Backend: models.BackendHalo, Status: notFound.Status, Message: err.Error()}
	}
	var badRequest *BadRequestError
	if errors.As(err, &badRequest) {
		return &helpdesk.BadRequestError{Backend: models.BackendHalo, Message: badRequest.Body}
	}
	return err
}

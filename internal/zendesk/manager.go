package zendesk

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/helpdesk"
	"github.com/deskbridge/backend/internal/models"
	"github.com/deskbridge/backend/internal/transform"
)

// Manager implements the backend capability interface against Zendesk.
type Manager struct {
	client *Client
	logger zerolog.Logger

	mu    sync.Mutex
	users map[int64]models.User
}

func NewManager(client *Client, logger zerolog.Logger) *Manager {
	return &Manager{client: client, logger: logger, users: map[int64]models.User{}}
}

func (m *Manager) GetOrCreateUser(ctx context.Context, user models.User) (models.User, error) {
	if !user.Resolvable() {
		return models.User{}, helpdesk.ErrUserNotFound
	}
	if user.ID != 0 {
		if cached, ok := m.cachedUser(user.ID); ok {
			return cached, nil
		}
		found, err := m.client.GetUser(ctx, user.ID)
		if err != nil {
			return models.User{}, err
		}
		return m.cacheUser(found), nil
	}
	created, err := m.client.CreateOrUpdateUser(ctx, transform.ZendeskUser{Name: user.FullName, Email: user.Email})
	if err != nil {
		return models.User{}, err
	}
	return m.cacheUser(created), nil
}

func (m *Manager) CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	created, err := m.client.CreateTicket(ctx, transform.RenderZendeskTicket(ticket))
	if err != nil {
		return models.Ticket{}, err
	}
	result, err := transform.TicketFromZendesk(created)
	if err != nil {
		return models.Ticket{}, err
	}
	result.Comment = ticket.Comment
	if !result.User.Resolvable() {
		result.User = ticket.User
	}
	return result, nil
}

func (m *Manager) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	found, err := m.client.GetTicket(ctx, id)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket, err := transform.TicketFromZendesk(found)
	if err != nil {
		return models.Ticket{}, err
	}
	if ticket.User.ID != 0 {
		if cached, ok := m.cachedUser(ticket.User.ID); ok {
			ticket.User = cached
		}
	}
	return ticket, nil
}

// UpdateTicket re-fetches before mutating so a concurrent edit is not
// overwritten wholesale; fields still resolve last-write-wins.
func (m *Manager) UpdateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	if ticket.ID == 0 {
		return models.Ticket{}, helpdesk.ErrTicketNotFound
	}
	current, err := m.client.GetTicket(ctx, ticket.ID)
	if err != nil {
		return models.Ticket{}, err
	}

	payload := transform.RenderZendeskTicket(ticket)
	payload.ID = current.ID
	updated, err := m.client.UpdateTicket(ctx, payload)
	if err != nil {
		return models.Ticket{}, err
	}
	result, err := transform.TicketFromZendesk(updated)
	if err != nil {
		return models.Ticket{}, err
	}
	result.Comment = ticket.Comment
	return result, nil
}

// AddComment is an update carrying only the comment; Zendesk has no
// standalone comment resource.
func (m *Manager) AddComment(ctx context.Context, ticketID int64, comment models.Comment) (models.Ticket, error) {
	public := comment.Public
	payload := transform.ZendeskTicket{
		ID: ticketID,
		Comment: &transform.ZendeskComment{
			Body:     comment.Body,
			AuthorID: comment.AuthorID,
			Public:   &public,
		},
	}
	updated, err := m.client.UpdateTicket(ctx, payload)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket, err := transform.TicketFromZendesk(updated)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket.Comment = &comment
	return ticket, nil
}

func (m *Manager) ListComments(ctx context.Context, ticketID int64) ([]models.Comment, error) {
	raw, err := m.client.ListComments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	comments := make([]models.Comment, 0, len(raw))
	for _, zc := range raw {
		public := true
		if zc.Public != nil {
			public = *zc.Public
		}
		comments = append(comments, models.Comment{Body: zc.Body, AuthorID: zc.AuthorID, Public: public})
	}
	return comments, nil
}

func (m *Manager) cachedUser(id int64) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

func (m *Manager) cacheUser(zu transform.ZendeskUser) models.User {
	u := models.User{ID: zu.ID, FullName: zu.Name, Email: zu.Email}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return u
}

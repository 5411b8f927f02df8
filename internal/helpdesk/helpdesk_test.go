package helpdesk

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/models"
)

type fakeManager struct {
	tickets map[int64]models.Ticket
	updates int
	getErr  error
}

func (f *fakeManager) GetOrCreateUser(ctx context.Context, u models.User) (models.User, error) {
	return u, nil
}

func (f *fakeManager) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	return t, nil
}

func (f *fakeManager) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	if f.getErr != nil {
		return models.Ticket{}, f.getErr
	}
	t, ok := f.tickets[id]
	if !ok {
		return models.Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeManager) UpdateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	f.updates++
	f.tickets[t.ID] = t
	return t, nil
}

func (f *fakeManager) AddComment(ctx context.Context, id int64, c models.Comment) (models.Ticket, error) {
	return f.tickets[id], nil
}

func (f *fakeManager) ListComments(ctx context.Context, id int64) ([]models.Comment, error) {
	return nil, nil
}

func TestCloseTicket(t *testing.T) {
	m := &fakeManager{tickets: map[int64]models.Ticket{
		7: {ID: 7, Subject: "S", Status: models.StatusOpen},
	}}
	ticket, err := CloseTicket(context.Background(), m, 7, zerolog.Nop())
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if ticket.Status != models.StatusClosed {
		t.Fatalf("expected closed, got %s", ticket.Status)
	}
	if m.updates != 1 {
		t.Fatalf("expected one update, got %d", m.updates)
	}
}

func TestCloseTicketAlreadyClosedIsNoop(t *testing.T) {
	m := &fakeManager{tickets: map[int64]models.Ticket{
		7: {ID: 7, Status: models.StatusClosed},
	}}
	ticket, err := CloseTicket(context.Background(), m, 7, zerolog.Nop())
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if ticket.Status != models.StatusClosed {
		t.Fatalf("expected closed, got %s", ticket.Status)
	}
	if m.updates != 0 {
		t.Fatalf("expected no update for already closed ticket, got %d", m.updates)
	}
}

func TestCloseTicketMissing(t *testing.T) {
	m := &fakeManager{tickets: map[int64]models.Ticket{}}
	_, err := CloseTicket(context.Background(), m, 99, zerolog.Nop())
	if !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

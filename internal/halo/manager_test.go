package halo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/fieldmap"
	"github.com/deskbridge/backend/internal/helpdesk"
	"github.com/deskbridge/backend/internal/models"
	"github.com/deskbridge/backend/internal/transform"
)

type managerFixture struct {
	actionPosts int
	ticketPosts int
	failActions bool
	users       []transform.HaloUser
}

func newManagerFixture(t *testing.T, f *managerFixture) *Manager {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token"})
	})
	mux.HandleFunc("/api/Tickets/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transform.HaloTicket{ID: 7, Summary: "S", StatusID: 2})
	})
	mux.HandleFunc("/api/Tickets/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/Tickets", func(w http.ResponseWriter, r *http.Request) {
		f.ticketPosts++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(transform.HaloTicket{ID: 7, Summary: "S", StatusID: 1})
	})
	mux.HandleFunc("/api/Actions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			f.actionPosts++
			if f.failActions {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(transform.HaloAction{ID: 1})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"actions": []transform.HaloAction{
			{ID: 1, TicketID: 7, Outcome: "comment", Note: "first"},
			{ID: 2, TicketID: 7, Outcome: "closure"},
			{ID: 3, TicketID: 7, Outcome: "comment", Note: "latest"},
			{ID: 4, TicketID: 7, Outcome: "email"},
		}})
	})
	mux.HandleFunc("/api/Users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(transform.HaloUser{ID: 55, Name: "N", EmailAddress: "n@example.com"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"users": f.users})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "id", "secret", srv.Client())
	return NewManager(client, fieldmap.New(nil), zerolog.Nop())
}

func TestManagerGetTicketPicksLatestComment(t *testing.T) {
	m := newManagerFixture(t, &managerFixture{})
	ticket, err := m.GetTicket(context.Background(), 7)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if ticket.ID != 7 || ticket.Status != models.StatusOpen {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if ticket.Comment == nil || ticket.Comment.Body != "latest" {
		t.Fatalf("expected most recent comment action, got %+v", ticket.Comment)
	}
}

func TestManagerGetTicketNotFound(t *testing.T) {
	m := newManagerFixture(t, &managerFixture{})
	_, err := m.GetTicket(context.Background(), 404)
	if !errors.Is(err, helpdesk.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestManagerCreateTicketPostsComment(t *testing.T) {
	f := &managerFixture{}
	m := newManagerFixture(t, f)
	ticket, err := m.CreateTicket(context.Background(), models.Ticket{
		Subject: "S",
		User:    models.User{FullName: "N", Email: "n@example.com"},
		Comment: &models.Comment{Body: "B", Public: true},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.ID != 7 {
		t.Fatalf("expected assigned id 7, got %d", ticket.ID)
	}
	if f.ticketPosts != 1 || f.actionPosts != 1 {
		t.Fatalf("expected one ticket post and one action post, got %d/%d", f.ticketPosts, f.actionPosts)
	}
}

func TestManagerCreateTicketCommentFailureKeepsTicket(t *testing.T) {
	f := &managerFixture{failActions: true}
	m := newManagerFixture(t, f)
	ticket, err := m.CreateTicket(context.Background(), models.Ticket{
		Subject: "S",
		User:    models.User{Email: "n@example.com"},
		Comment: &models.Comment{Body: "B", Public: true},
	})
	var cf *CommentFailedError
	if !errors.As(err, &cf) {
		t.Fatalf("expected CommentFailedError, got %v", err)
	}
	if cf.TicketID != 7 {
		t.Fatalf("expected ticket id in error, got %d", cf.TicketID)
	}
	if ticket.ID != 7 {
		t.Fatalf("partial failure must still return the created ticket, got %+v", ticket)
	}
}

func TestManagerResolvesExistingRequester(t *testing.T) {
	f := &managerFixture{users: []transform.HaloUser{{ID: 55, Name: "N", EmailAddress: "n@example.com"}}}
	m := newManagerFixture(t, f)
	ticket, err := m.CreateTicket(context.Background(), models.Ticket{
		Subject: "S",
		User:    models.User{Email: "n@example.com"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.User.ID != 55 {
		t.Fatalf("expected requester resolved to id 55, got %+v", ticket.User)
	}
}

func TestManagerGetOrCreateUser(t *testing.T) {
	m := newManagerFixture(t, &managerFixture{})
	user, err := m.GetOrCreateUser(context.Background(), models.User{FullName: "N", Email: "n@example.com"})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if user.ID != 55 {
		t.Fatalf("expected created user id 55, got %+v", user)
	}

	_, err = m.GetOrCreateUser(context.Background(), models.User{})
	if !errors.Is(err, helpdesk.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unresolvable user, got %v", err)
	}
}

func TestManagerListComments(t *testing.T) {
	m := newManagerFixture(t, &managerFixture{})
	comments, err := m.ListComments(context.Background(), 7)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comment actions, got %d", len(comments))
	}
	if comments[1].Body != "latest" {
		t.Fatalf("expected chronological order, got %+v", comments)
	}
}

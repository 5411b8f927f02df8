package halo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deskbridge/backend/internal/transform"
)

// haloServer fakes the parts of the Halo API the client touches.
type haloServer struct {
	authCalls   int
	lastPath    string
	lastBody    []byte
	ticketReply transform.HaloTicket
	postStatus  int
}

func (s *haloServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		s.authCalls++
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token", "expires_in": 3600})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.lastPath = r.URL.Path
		switch {
		case r.Method == http.MethodPost:
			s.lastBody, _ = io.ReadAll(r.Body)
			if s.postStatus != 0 {
				w.WriteHeader(s.postStatus)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(s.ticketReply)
		case r.URL.Path == "/api/Tickets/404":
			w.WriteHeader(http.StatusNotFound)
		default:
			json.NewEncoder(w).Encode(s.ticketReply)
		}
	})
	return mux
}

func newTestClient(t *testing.T, s *haloServer) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "client-id", "client-secret", srv.Client()), srv
}

func TestClientAuthenticatesOnce(t *testing.T) {
	s := &haloServer{ticketReply: transform.HaloTicket{ID: 1, Summary: "S"}}
	client, _ := newTestClient(t, s)

	for i := 0; i < 3; i++ {
		if _, err := client.GetTicket(context.Background(), 1); err != nil {
			t.Fatalf("get ticket: %v", err)
		}
	}
	if s.authCalls != 1 {
		t.Fatalf("expected one auth call for cached token, got %d", s.authCalls)
	}
}

func TestClientPostWrapsPayloadInArray(t *testing.T) {
	s := &haloServer{ticketReply: transform.HaloTicket{ID: 9, Summary: "S"}}
	client, _ := newTestClient(t, s)

	created, err := client.PostTicket(context.Background(), transform.HaloTicket{Summary: "S"})
	if err != nil {
		t.Fatalf("post ticket: %v", err)
	}
	if created.ID != 9 {
		t.Fatalf("expected created id 9, got %d", created.ID)
	}

	var payload []map[string]any
	if err := json.Unmarshal(s.lastBody, &payload); err != nil {
		t.Fatalf("payload is not an array: %v (%s)", err, s.lastBody)
	}
	if len(payload) != 1 || payload[0]["summary"] != "S" {
		t.Fatalf("unexpected payload: %s", s.lastBody)
	}
}

func TestClientGetNotFound(t *testing.T) {
	s := &haloServer{}
	client, _ := newTestClient(t, s)

	_, err := client.GetTicket(context.Background(), 404)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Status != http.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", notFound.Status)
	}
}

func TestClientPostBadRequest(t *testing.T) {
	s := &haloServer{postStatus: http.StatusBadRequest}
	client, _ := newTestClient(t, s)

	_, err := client.PostTicket(context.Background(), transform.HaloTicket{})
	var badRequest *BadRequestError
	if !errors.As(err, &badRequest) {
		t.Fatalf("expected BadRequestError, got %v", err)
	}
}

func TestClientPostServerErrorIsNotFound(t *testing.T) {
	s := &haloServer{postStatus: http.StatusBadGateway}
	client, _ := newTestClient(t, s)

	_, err := client.PostTicket(context.Background(), transform.HaloTicket{})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for non-400 failure, got %v", err)
	}
}

func TestClientReauthenticatesOnRevokedToken(t *testing.T) {
	authCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			authCalls++
			json.NewEncoder(w).Encode(map[string]any{"access_token": fmt.Sprintf("token-%d", authCalls)})
		case "/api/Tickets/7":
			if r.Header.Get("Authorization") != "Bearer token-2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(transform.HaloTicket{ID: 7, Summary: "S"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret", srv.Client())
	ticket, err := client.GetTicket(context.Background(), 7)
	if err != nil {
		t.Fatalf("get after revocation: %v", err)
	}
	if ticket.ID != 7 {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if authCalls != 2 {
		t.Fatalf("expected one re-auth after a 401, got %d auth calls", authCalls)
	}
}

func TestClientReauthenticatesOnlyOnce(t *testing.T) {
	authCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			authCalls++
			json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret", srv.Client())
	_, err := client.GetTicket(context.Background(), 7)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Status != http.StatusUnauthorized {
		t.Fatalf("expected the persistent 401 surfaced, got %v", err)
	}
	if authCalls != 2 {
		t.Fatalf("a persistent 401 must re-auth exactly once, got %d auth calls", authCalls)
	}
}

func TestClientFieldInfoAndRules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token"})
		case "/api/FieldInfo":
			json.NewEncoder(w).Encode([]FieldInfo{{ID: 101, Name: "ServiceArea", Values: []FieldInfoValue{{ID: 11, Name: "digital"}}}})
		case "/api/TicketRules":
			json.NewEncoder(w).Encode([]TicketRule{{ID: 1, Name: "default routing"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret", srv.Client())
	fields, err := client.GetFieldInfo(context.Background())
	if err != nil {
		t.Fatalf("field info: %v", err)
	}
	if len(fields) != 1 || fields[0].Values[0].Name != "digital" {
		t.Fatalf("unexpected field info: %+v", fields)
	}
	rules, err := client.GetTicketRules(context.Background())
	if err != nil {
		t.Fatalf("ticket rules: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "default routing" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}

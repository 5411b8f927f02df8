package models

import "time"

type Status string

const (
	StatusNew     Status = "new"
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusClosed  Status = "closed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type TicketType string

const (
	TypeQuestion TicketType = "question"
	TypeIncident TicketType = "incident"
	TypeProblem  TicketType = "problem"
	TypeTask     TicketType = "task"
)

// Ticket is the canonical help desk ticket shared by both backends.
// ID is zero until a backend assigns one. Exactly one Comment rides along
// on create/update; historical comments are fetched separately.
type Ticket struct {
	ID             int64         `json:"id,omitempty"`
	Subject        string        `json:"subject"`
	Description    string        `json:"description,omitempty"`
	User           User          `json:"user"`
	GroupID        int64         `json:"group_id,omitempty"`
	ExternalID     string        `json:"external_id,omitempty"`
	AssigneeID     int64         `json:"assignee_id,omitempty"`
	Comment        *Comment      `json:"comment,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	CustomFields   []CustomField `json:"custom_fields,omitempty"`
	RecipientEmail string        `json:"recipient,omitempty"`
	Responder      string        `json:"responder,omitempty"`
	CreatedAt      time.Time     `json:"created_at,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at,omitempty"`
	DueAt          *time.Time    `json:"due_at,omitempty"`
	Status         Status        `json:"status,omitempty"`
	Priority       Priority      `json:"priority,omitempty"`
	TicketType     TicketType    `json:"type,omitempty"`
}

// User must carry at least an ID or an email to be resolvable against a
// backend; resolution failure is an error, never a silent default.
type User struct {
	ID       int64   `json:"id,omitempty"`
	FullName string  `json:"name,omitempty"`
	Email    string  `json:"email,omitempty"`
	Groups   []Group `json:"groups,omitempty"`
}

func (u User) Resolvable() bool {
	return u.ID != 0 || u.Email != ""
}

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type Comment struct {
	Body     string `json:"body"`
	AuthorID int64  `json:"author_id,omitempty"`
	Public   bool   `json:"public"`
}

// CustomField value is a backend-specific scalar or list of scalars.
type CustomField struct {
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}

type Backend string

const (
	BackendZendesk Backend = "zendesk"
	BackendHalo    Backend = "halo"
)

// Credential is the stored record for one help desk tenant. TokenHash is a
// bcrypt hash of the API token; the plaintext is never persisted.
type Credential struct {
	Email     string `json:"email"`
	TokenHash string `json:"-"`

	// Token is the plaintext API token presented on the current request.
	// The auth middleware fills it in after a successful hash check; it is
	// needed to call Zendesk on the caller's behalf and is never stored.
	Token string `json:"-"`

	Subdomain        string    `json:"subdomain"`
	HaloClientID     string    `json:"-"`
	HaloClientSecret string    `json:"-"`
	ZendeskActive    bool      `json:"zendesk_active"`
	HaloActive       bool      `json:"halo_active"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

func (c Credential) DualRunning() bool {
	return c.ZendeskActive && c.HaloActive
}

func (c Credential) AnyActive() bool {
	return c.ZendeskActive || c.HaloActive
}

package transform

import (
	"encoding/json"
	"strconv"
	"time"
)

// FieldID tolerates Zendesk's habit of sending numeric ids as either JSON
// numbers or strings.
type FieldID int64

func (f *FieldID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FieldID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = FieldID(n)
	return nil
}

// Zendesk wire shapes, as emitted and consumed by Zendesk API v2 clients.

type ZendeskTicket struct {
	ID           int64                `json:"id,omitempty"`
	Subject      string               `json:"subject,omitempty"`
	Description  string               `json:"description,omitempty"`
	Status       string               `json:"status,omitempty"`
	Priority     string               `json:"priority,omitempty"`
	Type         string               `json:"type,omitempty"`
	Requester    *ZendeskRequester    `json:"requester,omitempty"`
	RequesterID  int64                `json:"requester_id,omitempty"`
	AssigneeID   int64                `json:"assignee_id,omitempty"`
	GroupID      int64                `json:"group_id,omitempty"`
	ExternalID   string               `json:"external_id,omitempty"`
	Recipient    string               `json:"recipient,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	CustomFields []ZendeskCustomField `json:"custom_fields,omitempty"`
	Comment      *ZendeskComment      `json:"comment,omitempty"`
	CreatedAt    *time.Time           `json:"created_at,omitempty"`
	UpdatedAt    *time.Time           `json:"updated_at,omitempty"`
	DueAt        *time.Time           `json:"due_at,omitempty"`
}

type ZendeskRequester struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type ZendeskComment struct {
	Body     string `json:"body,omitempty"`
	HTMLBody string `json:"html_body,omitempty"`
	AuthorID int64  `json:"author_id,omitempty"`
	Public   *bool  `json:"public,omitempty"`
}

type ZendeskCustomField struct {
	ID    FieldID `json:"id"`
	Value any     `json:"value"`
}

type ZendeskUser struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TicketAudit is the envelope Zendesk returns alongside a ticket on
// create/update; client libraries expect it to be present.
type TicketAudit struct {
	ID        int64        `json:"id,omitempty"`
	TicketID  int64        `json:"ticket_id,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
	Events    []AuditEvent `json:"events"`
}

type AuditEvent struct {
	Type   string `json:"type"`
	Body   string `json:"body,omitempty"`
	Public *bool  `json:"public,omitempty"`
}

type TicketResponse struct {
	Ticket ZendeskTicket `json:"ticket"`
	Audit  TicketAudit   `json:"audit"`
}

// Halo wire shapes. Every POST body is wrapped in a single-element array by
// the client, not here.

type HaloTicket struct {
	ID           int64             `json:"id,omitempty"`
	Summary      string            `json:"summary,omitempty"`
	Details      string            `json:"details,omitempty"`
	DetailsHTML  string            `json:"details_html,omitempty"`
	StatusID     int64             `json:"status_id,omitempty"`
	PriorityID   int64             `json:"priority_id,omitempty"`
	TicketTypeID int64             `json:"tickettype_id,omitempty"`
	AgentID      int64             `json:"agent_id,omitempty"`
	TeamID       int64             `json:"team_id,omitempty"`
	UserID       int64             `json:"user_id,omitempty"`
	UsersName    string            `json:"users_name,omitempty"`
	ReportedBy   string            `json:"reportedby,omitempty"`
	ExternalID   string            `json:"external_id,omitempty"`
	DeadlineDate *time.Time        `json:"deadlinedate,omitempty"`
	DateOccurred *time.Time        `json:"dateoccurred,omitempty"`
	LastUpdate   *time.Time        `json:"lastactiondate,omitempty"`
	Tags         []HaloTag         `json:"tags,omitempty"`
	CustomFields []HaloCustomField `json:"customfields,omitempty"`
}

type HaloTag struct {
	ID   int64  `json:"id,omitempty"`
	Text string `json:"text"`
}

type HaloCustomField struct {
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}

type HaloAction struct {
	ID             int64  `json:"id,omitempty"`
	TicketID       int64  `json:"ticket_id"`
	Outcome        string `json:"outcome"`
	Note           string `json:"note,omitempty"`
	NoteHTML       string `json:"note_html,omitempty"`
	WhoAgentID     int64  `json:"who_agentid,omitempty"`
	HiddenFromUser bool   `json:"hiddenfromuser"`
}

type HaloUser struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	EmailAddress string `json:"emailaddress,omitempty"`
}

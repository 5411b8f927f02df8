package transform

import (
	"time"

	"github.com/deskbridge/backend/internal/fieldmap"
	"github.com/deskbridge/backend/internal/models"
)

// TicketFromHalo lifts a Halo wire ticket into the canonical record.
// Status ids go through the fixed table and unknown ids are a typed error;
// Halo custom fields without a mapping entry are not representable on the
// Zendesk side and are left out.
func TicketFromHalo(h HaloTicket, table *fieldmap.Table) (models.Ticket, error) {
	t := models.Ticket{
		ID:          h.ID,
		Subject:     h.Summary,
		Description: h.Details,
		AssigneeID:  h.AgentID,
		GroupID:     h.TeamID,
		ExternalID:  h.ExternalID,
		DueAt:       h.DeadlineDate,
	}
	if h.DateOccurred != nil {
		t.CreatedAt = *h.DateOccurred
	}
	if h.LastUpdate != nil {
		t.UpdatedAt = *h.LastUpdate
	}

	if h.StatusID != 0 {
		status, err := StatusFromHaloID(h.StatusID)
		if err != nil {
			return models.Ticket{}, err
		}
		t.Status = status
	}
	t.Priority = PriorityFromHaloIDs(h.PriorityID, h.TicketTypeID)
	t.TicketType = TicketTypeFromHaloID(h.TicketTypeID)

	for _, tag := range h.Tags {
		t.Tags = append(t.Tags, tag.Text)
	}

	t.User = models.User{ID: h.UserID, FullName: h.UsersName, Email: h.ReportedBy}

	if table != nil {
		for _, cf := range h.CustomFields {
			entry, ok := table.ByHaloID(cf.ID)
			if !ok {
				continue
			}
			t.CustomFields = append(t.CustomFields, models.CustomField{
				ID:    entry.ZendeskID,
				Value: entry.ReverseMapValue(cf.Value),
			})
		}
	}
	return t, nil
}

// CommentFromHaloAction lifts a comment-outcome action into the canonical
// comment.
func CommentFromHaloAction(a HaloAction) models.Comment {
	return models.Comment{
		Body:     a.Note,
		AuthorID: a.WhoAgentID,
		Public:   !a.HiddenFromUser,
	}
}

// RenderZendeskTicket converts the canonical ticket to the Zendesk wire
// shape.
func RenderZendeskTicket(t models.Ticket) ZendeskTicket {
	zt := ZendeskTicket{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Type:        string(t.TicketType),
		AssigneeID:  t.AssigneeID,
		GroupID:     t.GroupID,
		ExternalID:  t.ExternalID,
		Recipient:   t.RecipientEmail,
		Tags:        t.Tags,
		DueAt:       t.DueAt,
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt
		zt.CreatedAt = &created
	}
	if !t.UpdatedAt.IsZero() {
		updated := t.UpdatedAt
		zt.UpdatedAt = &updated
	}
	if t.User.ID != 0 {
		zt.RequesterID = t.User.ID
	} else if t.User.Resolvable() || t.User.FullName != "" {
		zt.Requester = &ZendeskRequester{Name: t.User.FullName, Email: t.User.Email}
	}
	if t.Comment != nil {
		public := t.Comment.Public
		zt.Comment = &ZendeskComment{
			Body:     t.Comment.Body,
			AuthorID: t.Comment.AuthorID,
			Public:   &public,
		}
	}
	for _, cf := range t.CustomFields {
		zt.CustomFields = append(zt.CustomFields, ZendeskCustomField{ID: FieldID(cf.ID), Value: cf.Value})
	}
	return zt
}

// NewTicketResponse wraps a canonical ticket in the ticket+audit envelope
// Zendesk clients expect on create and update.
func NewTicketResponse(t models.Ticket) TicketResponse {
	now := time.Now().UTC()
	resp := TicketResponse{
		Ticket: RenderZendeskTicket(t),
		Audit: TicketAudit{
			TicketID:  t.ID,
			CreatedAt: &now,
			Events:    []AuditEvent{},
		},
	}
	if t.Comment != nil {
		public := t.Comment.Public
		resp.Audit.Events = append(resp.Audit.Events, AuditEvent{
			Type:   "Comment",
			Body:   t.Comment.Body,
			Public: &public,
		})
	}
	return resp
}

// RenderZendeskUser converts the canonical user to the Zendesk wire shape.
func RenderZendeskUser(u models.User) ZendeskUser {
	return ZendeskUser{ID: u.ID, Name: u.FullName, Email: u.Email}
}

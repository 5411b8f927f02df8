package transform

import (
	"encoding/json"
	"fmt"

	"github.com/deskbridge/backend/internal/fieldmap"
	"github.com/deskbridge/backend/internal/models"
)

// Keys a Zendesk ticket payload may carry. Parsing consumes these from the
// decoded object; anything left over is an unsupported field, so nothing is
// ever dropped silently.
var zendeskTicketKeys = []string{
	"id", "subject", "description", "status", "priority", "type",
	"requester", "requester_id", "assignee_id", "group_id", "external_id",
	"recipient", "tags", "custom_fields", "comment",
	"created_at", "updated_at", "due_at",
}

// ParseZendeskTicket decodes one Zendesk-shaped ticket object into the
// canonical record, rejecting unknown top-level keys.
func ParseZendeskTicket(raw json.RawMessage) (models.Ticket, error) {
	leftover := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &leftover); err != nil {
		return models.Ticket{}, fmt.Errorf("decode ticket: %w", err)
	}
	for _, key := range zendeskTicketKeys {
		delete(leftover, key)
	}
	for key := range leftover {
		return models.Ticket{}, &fieldmap.UnsupportedFieldError{Field: key}
	}

	var zt ZendeskTicket
	if err := json.Unmarshal(raw, &zt); err != nil {
		return models.Ticket{}, fmt.Errorf("decode ticket: %w", err)
	}
	return TicketFromZendesk(zt)
}

// TicketFromZendesk lifts a Zendesk wire ticket into the canonical record.
func TicketFromZendesk(zt ZendeskTicket) (models.Ticket, error) {
	t := models.Ticket{
		ID:             zt.ID,
		Subject:        zt.Subject,
		Description:    zt.Description,
		GroupID:        zt.GroupID,
		ExternalID:     zt.ExternalID,
		AssigneeID:     zt.AssigneeID,
		Tags:           zt.Tags,
		RecipientEmail: zt.Recipient,
		DueAt:          zt.DueAt,
	}
	if zt.CreatedAt != nil {
		t.CreatedAt = *zt.CreatedAt
	}
	if zt.UpdatedAt != nil {
		t.UpdatedAt = *zt.UpdatedAt
	}

	if zt.Status != "" {
		s := models.Status(zt.Status)
		if _, ok := statusToHaloID[s]; !ok {
			return models.Ticket{}, &UnknownStatusError{Status: zt.Status}
		}
		t.Status = s
	}
	t.Priority = models.Priority(zt.Priority)
	t.TicketType = models.TicketType(zt.Type)

	if zt.Requester != nil {
		t.User = models.User{ID: zt.Requester.ID, FullName: zt.Requester.Name, Email: zt.Requester.Email}
	} else if zt.RequesterID != 0 {
		t.User = models.User{ID: zt.RequesterID}
	}

	if zt.Comment != nil {
		public := true
		if zt.Comment.Public != nil {
			public = *zt.Comment.Public
		}
		t.Comment = &models.Comment{
			Body:     zt.Comment.Body,
			AuthorID: zt.Comment.AuthorID,
			Public:   public,
		}
	}

	for _, cf := range zt.CustomFields {
		t.CustomFields = append(t.CustomFields, models.CustomField{ID: int64(cf.ID), Value: cf.Value})
	}
	return t, nil
}

// ToHaloTicket converts the canonical ticket to the Halo wire shape.
// Comment bodies are markdown and render to details_html; a plain
// description maps to details. Custom fields go through the mapping table
// and fail loudly when the table has no entry for the field or the value.
func ToHaloTicket(t models.Ticket, table *fieldmap.Table) (HaloTicket, error) {
	h := HaloTicket{
		ID:           t.ID,
		Summary:      t.Subject,
		AgentID:      t.AssigneeID,
		TeamID:       t.GroupID,
		ExternalID:   t.ExternalID,
		DeadlineDate: t.DueAt,
	}

	if t.Comment != nil && t.Comment.Body != "" {
		html, err := RenderCommentHTML(t.Comment.Body)
		if err != nil {
			return HaloTicket{}, fmt.Errorf("render comment: %w", err)
		}
		h.DetailsHTML = html
	} else if t.Description != "" {
		h.Details = t.Description
	}

	for _, tag := range t.Tags {
		h.Tags = append(h.Tags, HaloTag{Text: tag})
	}

	if t.User.ID != 0 {
		h.UserID = t.User.ID
	} else {
		h.UsersName = t.User.FullName
		h.ReportedBy = t.User.Email
	}

	if t.Status != "" {
		id, err := StatusToHaloID(t.Status)
		if err != nil {
			return HaloTicket{}, err
		}
		h.StatusID = id
	}
	if t.TicketType != "" {
		h.TicketTypeID = TicketTypeToHaloID(t.TicketType)
	}
	if t.Priority != "" {
		h.PriorityID = PriorityToHaloID(t.Priority, t.TicketType)
	}

	for _, cf := range t.CustomFields {
		entry, ok := table.ByZendeskID(cf.ID)
		if !ok {
			return HaloTicket{}, &fieldmap.UnsupportedFieldError{Field: fmt.Sprint(cf.ID)}
		}
		if entry.HaloID == nil {
			return HaloTicket{}, &fieldmap.UnsupportedFieldError{Field: entry.ZendeskTitle}
		}
		value, err := entry.MapValue(cf.Value)
		if err != nil {
			return HaloTicket{}, err
		}
		h.CustomFields = append(h.CustomFields, HaloCustomField{ID: *entry.HaloID, Value: value})
	}
	return h, nil
}

// CommentToHaloAction renders the canonical comment as a Halo action for
// POST Actions.
func CommentToHaloAction(ticketID int64, c models.Comment) (HaloAction, error) {
	html, err := RenderCommentHTML(c.Body)
	if err != nil {
		return HaloAction{}, fmt.Errorf("render comment: %w", err)
	}
	return HaloAction{
		TicketID:       ticketID,
		Outcome:        "comment",
		Note:           c.Body,
		NoteHTML:       html,
		WhoAgentID:     c.AuthorID,
		HiddenFromUser: !c.Public,
	}, nil
}

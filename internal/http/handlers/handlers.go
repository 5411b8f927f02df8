package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/db"
	"github.com/deskbridge/backend/internal/fieldmap"
	"github.com/deskbridge/backend/internal/halo"
	"github.com/deskbridge/backend/internal/helpdesk"
	"github.com/deskbridge/backend/internal/http/middleware"
	"github.com/deskbridge/backend/internal/models"
	"github.com/deskbridge/backend/internal/service"
	"github.com/deskbridge/backend/internal/transform"
)

// Forwarder is the raw passthrough used for Zendesk-only callers and
// uploads.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, subdomain string) error
}

type Handler struct {
	Store      *db.Store
	Dispatcher *service.Dispatcher
	Proxy      Forwarder
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "ServiceUnavailable", "Database unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ticketPayload struct {
	Ticket json.RawMessage `json:"ticket" validate:"required"`
}

func (h *Handler) TicketsCreate(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if h.Dispatcher.Mode(cred) == service.ModeProxy {
		h.forward(c, cred)
		return
	}

	ticket, ok := h.bindTicket(c)
	if !ok {
		return
	}
	created, err := h.Dispatcher.CreateTicket(c.Request.Context(), cred, ticket)
	if err != nil {
		h.writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transform.NewTicketResponse(created))
}

// TicketsList has no Halo equivalent in the capability surface; callers
// with Zendesk active get the passthrough.
func (h *Handler) TicketsList(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if cred.ZendeskActive {
		h.forward(c, cred)
		return
	}
	writeError(c, http.StatusBadRequest, "UnsupportedOperation", "Ticket listing is not available for this account")
}

func (h *Handler) TicketShow(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if h.Dispatcher.Mode(cred) == service.ModeProxy {
		h.forward(c, cred)
		return
	}
	id, ok := ticketIDParam(c)
	if !ok {
		return
	}
	ticket, err := h.Dispatcher.GetTicket(c.Request.Context(), cred, id)
	if err != nil {
		h.writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": transform.RenderZendeskTicket(ticket)})
}

func (h *Handler) TicketUpdate(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if h.Dispatcher.Mode(cred) == service.ModeProxy {
		h.forward(c, cred)
		return
	}
	id, ok := ticketIDParam(c)
	if !ok {
		return
	}
	ticket, ok := h.bindTicket(c)
	if !ok {
		return
	}
	ticket.ID = id

	var (
		updated models.Ticket
		err     error
	)
	if isCloseRequest(ticket) {
		updated, err = h.Dispatcher.CloseTicket(c.Request.Context(), cred, id)
	} else if ticket.Subject == "" && ticket.Status == "" && ticket.Comment != nil {
		updated, err = h.Dispatcher.AddComment(c.Request.Context(), cred, id, *ticket.Comment)
	} else {
		updated, err = h.Dispatcher.UpdateTicket(c.Request.Context(), cred, ticket)
	}
	if err != nil {
		h.writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, transform.NewTicketResponse(updated))
}

func (h *Handler) TicketComments(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if h.Dispatcher.Mode(cred) == service.ModeProxy {
		h.forward(c, cred)
		return
	}
	id, ok := ticketIDParam(c)
	if !ok {
		return
	}
	comments, err := h.Dispatcher.ListComments(c.Request.Context(), cred, id)
	if err != nil {
		h.writeBackendError(c, err)
		return
	}
	out := make([]gin.H, 0, len(comments))
	for _, comment := range comments {
		out = append(out, gin.H{
			"body":      comment.Body,
			"author_id": comment.AuthorID,
			"public":    comment.Public,
		})
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

type userPayload struct {
	User struct {
		Name  string `json:"name"`
		Email string `json:"email" validate:"required,email"`
	} `json:"user" validate:"required"`
}

// UsersCreate handles POST /users.json. Creation is idempotent on email:
// an existing user is returned rather than duplicated, which is what the
// upsert path does already.
func (h *Handler) UsersCreate(c *gin.Context) {
	h.upsertUser(c)
}

func (h *Handler) UserCreateOrUpdate(c *gin.Context) {
	h.upsertUser(c)
}

func (h *Handler) upsertUser(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if h.Dispatcher.Mode(cred) == service.ModeProxy {
		h.forward(c, cred)
		return
	}

	var payload userPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "InvalidPayload", err.Error())
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(c, http.StatusBadRequest, "InvalidPayload", err.Error())
		return
	}

	user, err := h.Dispatcher.GetOrCreateUser(c.Request.Context(), cred, models.User{
		FullName: payload.User.Name,
		Email:    payload.User.Email,
	})
	if err != nil {
		h.writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": transform.RenderZendeskUser(user)})
}

func (h *Handler) UserShow(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if h.Dispatcher.Mode(cred) == service.ModeProxy {
		h.forward(c, cred)
		return
	}
	raw := strings.TrimSuffix(c.Param("id"), ".json")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "InvalidPayload", "user id must be numeric")
		return
	}
	user, err := h.Dispatcher.GetOrCreateUser(c.Request.Context(), cred, models.User{ID: id})
	if err != nil {
		h.writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": transform.RenderZendeskUser(user)})
}

// UserMe answers with the caller's own user record, resolved on the
// active backend by credential email.
func (h *Handler) UserMe(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if cred.ZendeskActive {
		h.forward(c, cred)
		return
	}
	user, err := h.Dispatcher.GetOrCreateUser(c.Request.Context(), cred, models.User{Email: cred.Email})
	if err != nil {
		h.writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": transform.RenderZendeskUser(user)})
}

// Uploads ride the passthrough; Halo attachments are not bridged.
func (h *Handler) Uploads(c *gin.Context) {
	cred, ok := middleware.Credential(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Couldn't authenticate you")
		return
	}
	if !cred.ZendeskActive {
		writeError(c, http.StatusBadRequest, "UnsupportedOperation", "Uploads are not available for this account")
		return
	}
	h.forward(c, cred)
}

func (h *Handler) bindTicket(c *gin.Context) (models.Ticket, bool) {
	var payload ticketPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "InvalidPayload", err.Error())
		return models.Ticket{}, false
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(c, http.StatusBadRequest, "InvalidPayload", "ticket object required")
		return models.Ticket{}, false
	}
	ticket, err := transform.ParseZendeskTicket(payload.Ticket)
	if err != nil {
		h.writeBackendError(c, err)
		return models.Ticket{}, false
	}
	return ticket, true
}

func (h *Handler) forward(c *gin.Context, cred models.Credential) {
	if err := h.Proxy.Forward(c.Writer, c.Request, cred.Subdomain); err != nil {
		h.Logger.Error().Err(err).Str("email", cred.Email).Msg("zendesk passthrough failed")
		// The proxy may fail mid-copy after the upstream status and
		// headers went out; the error body is only valid on a clean
		// failure.
		if !c.Writer.Written() {
			writeError(c, http.StatusBadGateway, "BadGateway", "Upstream request failed")
			return
		}
	}
	c.Abort()
}

// isCloseRequest recognizes the canonical close payload: a status-only
// update to closed.
func isCloseRequest(t models.Ticket) bool {
	return t.Status == models.StatusClosed &&
		t.Subject == "" && t.Comment == nil && len(t.CustomFields) == 0 && len(t.Tags) == 0
}

func ticketIDParam(c *gin.Context) (int64, bool) {
	raw := strings.TrimSuffix(c.Param("id"), ".json")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "InvalidPayload", "ticket id must be numeric")
		return 0, false
	}
	return id, true
}

// writeBackendError maps typed errors from the managers and the
// transformation layer onto the statuses Zendesk clients expect.
func (h *Handler) writeBackendError(c *gin.Context, err error) {
	var (
		unsupportedField *fieldmap.UnsupportedFieldError
		unsupportedValue *fieldmap.UnsupportedValueError
		unknownStatus    *transform.UnknownStatusError
		badRequest       *helpdesk.BadRequestError
		backendErr       *helpdesk.BackendError
		commentFailed    *halo.CommentFailedError
	)
	switch {
	case errors.Is(err, helpdesk.ErrTicketNotFound), errors.Is(err, helpdesk.ErrUserNotFound):
		writeError(c, http.StatusNotFound, "RecordNotFound", "Not found")
	case errors.As(err, &unsupportedField):
		writeError(c, http.StatusBadRequest, "UnsupportedField", unsupportedField.Error())
	case errors.As(err, &unsupportedValue):
		writeError(c, http.StatusBadRequest, "UnsupportedFieldValue", unsupportedValue.Error())
	case errors.As(err, &unknownStatus):
		writeError(c, http.StatusBadRequest, "InvalidStatus", unknownStatus.Error())
	case errors.As(err, &badRequest):
		writeError(c, http.StatusBadRequest, "BadRequest", badRequest.Error())
	case errors.As(err, &commentFailed):
		h.Logger.Error().Err(err).Int64("ticket_id", commentFailed.TicketID).Msg("comment step failed after ticket create")
		writeError(c, http.StatusInternalServerError, "CommentFailed", commentFailed.Error())
	case errors.As(err, &backendErr):
		writeError(c, http.StatusInternalServerError, "BackendError", backendErr.Error())
	default:
		h.Logger.Error().Err(err).Msg("backend call failed")
		writeError(c, http.StatusInternalServerError, "InternalError", "Internal error")
	}
}

func writeError(c *gin.Context, status int, code string, description string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":       code,
		"description": description,
	})
}

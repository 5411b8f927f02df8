package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deskbridge/backend/internal/helpdesk"
	"github.com/deskbridge/backend/internal/models"
	"github.com/deskbridge/backend/internal/transform"
)

// Client talks to the Zendesk REST API v2 for one subdomain using
// email/token basic auth.
type Client struct {
	BaseURL    string
	Email      string
	APIToken   string
	HTTPClient *http.Client
}

// BaseURLForSubdomain is the production endpoint; tests point BaseURL at a
// local server instead.
func BaseURLForSubdomain(subdomain string) string {
	return fmt.Sprintf("https://%s.zendesk.com", subdomain)
}

func NewClient(baseURL, email, apiToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Email:      email,
		APIToken:   apiToken,
		HTTPClient: httpClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.Email+"/token", c.APIToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: zendesk %s", helpdesk.ErrTicketNotFound, path)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &helpdesk.BadRequestError{Backend: models.BackendZendesk, Message: string(detail)}
		default:
			return &helpdesk.BackendError{Backend: models.BackendZendesk, Status: resp.StatusCode, Message: string(detail)}
		}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) GetTicket(ctx context.Context, id int64) (transform.ZendeskTicket, error) {
	var body struct {
		Ticket transform.ZendeskTicket `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v2/tickets/%d.json", id), nil, &body); err != nil {
		return transform.ZendeskTicket{}, err
	}
	return body.Ticket, nil
}

func (c *Client) CreateTicket(ctx context.Context, t transform.ZendeskTicket) (transform.ZendeskTicket, error) {
	var body struct {
		Ticket transform.ZendeskTicket `json:"ticket"`
	}
	payload := map[string]transform.ZendeskTicket{"ticket": t}
	if err := c.do(ctx, http.MethodPost, "/api/v2/tickets.json", payload, &body); err != nil {
		return transform.ZendeskTicket{}, err
	}
	return body.Ticket, nil
}

func (c *Client) UpdateTicket(ctx context.Context, t transform.ZendeskTicket) (transform.ZendeskTicket, error) {
	var body struct {
		Ticket transform.ZendeskTicket `json:"ticket"`
	}
	payload := map[string]transform.ZendeskTicket{"ticket": t}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v2/tickets/%d.json", t.ID), payload, &body); err != nil {
		return transform.ZendeskTicket{}, err
	}
	return body.Ticket, nil
}

func (c *Client) ListComments(ctx context.Context, ticketID int64) ([]transform.ZendeskComment, error) {
	var body struct {
		Comments []transform.ZendeskComment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v2/tickets/%d/comments.json", ticketID), nil, &body); err != nil {
		return nil, err
	}
	return body.Comments, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (transform.ZendeskUser, error) {
	var body struct {
		User transform.ZendeskUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v2/users/%d.json", id), nil, &body); err != nil {
		return transform.ZendeskUser{}, err
	}
	return body.User, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]transform.ZendeskUser, error) {
	var body struct {
		Users []transform.ZendeskUser `json:"users"`
	}
	path := "/api/v2/users/search.json?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body.Users, nil
}

func (c *Client) CreateOrUpdateUser(ctx context.Context, u transform.ZendeskUser) (transform.ZendeskUser, error) {
	var body struct {
		User transform.ZendeskUser `json:"user"`
	}
	payload := map[string]transform.ZendeskUser{"user": u}
	if err := c.do(ctx, http.MethodPost, "/api/v2/users/create_or_update.json", payload, &body); err != nil {
		return transform.ZendeskUser{}, err
	}
	return body.User, nil
}

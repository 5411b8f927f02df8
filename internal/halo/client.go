package halo

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

	"github.com/deskbridge/backend/internal/transform"
)

// NotFoundError covers every non-200 GET response and non-400 POST
// failures, matching how the Halo API reports missing resources.
type NotFoundError struct {
	Path   string
	Status int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("halo %s returned %d", e.Path, e.Status)
}

// BadRequestError covers a 400 on POST, usually a payload Halo rejects.
type BadRequestError struct {
	Path string
	Body string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("halo rejected %s: %s", e.Path, e.Body)
}

// Client talks to the Halo REST API for one tenant. Every POST wraps its
// payload in a single-element array, which the API requires even for one
// record.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client

	tokens *TokenCache
}

func NewClient(baseURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   httpClient,
	}
	c.tokens = NewTokenCache(c.authenticate)
	return c
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("scope", "all")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("halo auth failed: %s", resp.Status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("halo auth returned empty token")
	}
	return body.AccessToken, nil
}

// send issues a request built with the cached bearer token. A 401 means
// Halo invalidated the token before its TTL ran out; the cache is reset
// and the request re-sent once with a fresh token.
func (c *Client) send(ctx context.Context, build func(token string) (*http.Request, error)) (*http.Response, error) {
	token, err := c.tokens.GetOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	req, err := build(token)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	c.tokens.Reset()
	token, err = c.tokens.GetOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	req, err = build(token)
	if err != nil {
		return nil, err
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.send(ctx, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/"+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &NotFoundError{Path: path, Status: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal([]any{payload})
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/"+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if resp.StatusCode == http.StatusBadRequest {
			return &BadRequestError{Path: path, Body: string(detail)}
		}
		return &NotFoundError{Path: path, Status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) GetTicket(ctx context.Context, id int64) (transform.HaloTicket, error) {
	var t transform.HaloTicket
	if err := c.get(ctx, fmt.Sprintf("Tickets/%d", id), &t); err != nil {
		return transform.HaloTicket{}, err
	}
	return t, nil
}

func (c *Client) PostTicket(ctx context.Context, t transform.HaloTicket) (transform.HaloTicket, error) {
	var created transform.HaloTicket
	if err := c.post(ctx, "Tickets", t, &created); err != nil {
		return transform.HaloTicket{}, err
	}
	return created, nil
}

// GetActions lists a ticket's actions in chronological order.
func (c *Client) GetActions(ctx context.Context, ticketID int64) ([]transform.HaloAction, error) {
	var body struct {
		Actions []transform.HaloAction `json:"actions"`
	}
	if err := c.get(ctx, fmt.Sprintf("Actions?ticket_id=%d", ticketID), &body); err != nil {
		return nil, err
	}
	return body.Actions, nil
}

func (c *Client) PostAction(ctx context.Context, a transform.HaloAction) (transform.HaloAction, error) {
	var created transform.HaloAction
	if err := c.post(ctx, "Actions", a, &created); err != nil {
		return transform.HaloAction{}, err
	}
	return created, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (transform.HaloUser, error) {
	var u transform.HaloUser
	if err := c.get(ctx, fmt.Sprintf("Users/%d", id), &u); err != nil {
		return transform.HaloUser{}, err
	}
	return u, nil
}

func (c *Client) SearchUsers(ctx context.Context, search string) ([]transform.HaloUser, error) {
	var body struct {
		Users []transform.HaloUser `json:"users"`
	}
	if err := c.get(ctx, "Users?search="+url.QueryEscape(search), &body); err != nil {
		return nil, err
	}
	return body.Users, nil
}

func (c *Client) PostUser(ctx context.Context, u transform.HaloUser) (transform.HaloUser, error) {
	var created transform.HaloUser
	if err := c.post(ctx, "Users", u, &created); err != nil {
		return transform.HaloUser{}, err
	}
	return created, nil
}

type CannedText struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Text string `json:"text"`
}

func (c *Client) PostCannedText(ctx context.Context, ct CannedText) (CannedText, error) {
	var created CannedText
	if err := c.post(ctx, "CannedText", ct, &created); err != nil {
		return CannedText{}, err
	}
	return created, nil
}

type TicketRule struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Use  string `json:"use,omitempty"`
}

func (c *Client) GetTicketRules(ctx context.Context) ([]TicketRule, error) {
	var rules []TicketRule
	if err := c.get(ctx, "TicketRules", &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

type FieldInfoValue struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type FieldInfo struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Label  string           `json:"label,omitempty"`
	Values []FieldInfoValue `json:"values,omitempty"`
}

// GetFieldInfo returns the tenant's custom field configuration; the field
// mapping generator joins this against a Zendesk field export.
func (c *Client) GetFieldInfo(ctx context.Context) ([]FieldInfo, error) {
	var fields []FieldInfo
	if err := c.get(ctx, "FieldInfo", &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Package hubspot upserts calculator leads into the HubSpot CRM over its v3
// REST API: search by email, then create or update.
package hubspot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const defaultBaseURL = "https://api.hubapi.com"

// Client calls the HubSpot contacts API. A Client with an empty token is
// valid; every call then returns an explicit not-configured failure without
// touching the network.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// New returns a Client authenticated with the given private-app token.
func New(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithBaseURL is New with an overridden API base, for tests.
func NewWithBaseURL(token, baseURL string) *Client {
	c := New(token)
	c.baseURL = baseURL
	return c
}

// Result reports the outcome of an upsert. Failures are values, not errors:
// the submission path logs them and moves on.
type Result struct {
	Success   bool
	ContactID string
	Err       error
}

// UpsertContact finds a contact by email and updates it, or creates it when
// absent. properties must include the email key.
func (c *Client) UpsertContact(ctx context.Context, email string, properties map[string]any) Result {
	if c.token == "" {
		return Result{Err: fmt.Errorf("HUBSPOT_ACCESS_TOKEN not configured")}
	}

	contactID, err := c.searchByEmail(ctx, email)
	if err != nil {
		// A failed search is not fatal; fall through and create.
		contactID = ""
	}

	if contactID != "" {
		if err := c.updateContact(ctx, contactID, properties); err != nil {
			return Result{Err: err}
		}
		return Result{Success: true, ContactID: contactID}
	}

	contactID, err = c.createContact(ctx, properties)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Success: true, ContactID: contactID}
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
	After        string        `json:"after"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

func (c *Client) searchByEmail(ctx context.Context, email string) (string, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{
			PropertyName: "email",
			Operator:     "EQ",
			Value:        email,
		}}}},
		Properties: []string{"email"},
		Limit:      1,
		After:      "0",
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", req, &resp); err != nil {
		return "", fmt.Errorf("search contact: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ID, nil
}

type contactRequest struct {
	Properties map[string]any `json:"properties"`
}

type contactResponse struct {
	ID string `json:"id"`
}

func (c *Client) createContact(ctx context.Context, properties map[string]any) (string, error) {
	var resp contactResponse
	if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", contactRequest{Properties: properties}, &resp); err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) updateContact(ctx context.Context, contactID string, properties map[string]any) error {
	if err := c.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+contactID, contactRequest{Properties: properties}, nil); err != nil {
		return fmt.Errorf("update contact %s: %w", contactID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call hubspot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hubspot returned %d: %s", resp.StatusCode, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package directory integrates with the property-management backend: tenant
// lookup, the property list, and service issue / worker task creation.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the backend has no record for the query.
var ErrNotFound = errors.New("directory: not found")

const defaultTimeout = 10 * time.Second

// Tenant is a resident record from the backend.
type Tenant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Unit        string `json:"unit"`
	Property    string `json:"property"`
	LeaseStatus string `json:"lease_status"`
}

// Property is one managed building.
type Property struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ServiceIssue is a maintenance issue to open in the backend.
type ServiceIssue struct {
	TenantID    string `json:"tenant_id,omitempty"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Source      string `json:"source"`
	Unit        string `json:"unit,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// WorkerTask is a follow-up task for office staff.
type WorkerTask struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Source      string `json:"source"`
	CallerPhone string `json:"caller_phone,omitempty"`
}

// Client talks to the property-management REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Option configures the directory client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// NewClient creates a directory client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupTenantByPhone finds a tenant by caller number. Formatting characters
// in the number are stripped before the query.
func (c *Client) LookupTenantByPhone(ctx context.Context, phone string) (*Tenant, error) {
	clean := digitsOnly(phone)
	if clean == "" {
		return nil, ErrNotFound
	}

	var result struct {
		Tenants []Tenant `json:"tenants"`
	}
	err := c.do(ctx, http.MethodGet, "/tenants/search?phone="+clean, nil, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Tenants) == 0 {
		return nil, ErrNotFound
	}
	return &result.Tenants[0], nil
}

// ListProperties returns all managed properties.
func (c *Client) ListProperties(ctx context.Context) ([]Property, error) {
	var result struct {
		Properties []Property `json:"properties"`
	}
	if err := c.do(ctx, http.MethodGet, "/properties", nil, &result); err != nil {
		return nil, err
	}
	return result.Properties, nil
}

// CreateServiceIssue opens a maintenance issue and returns its backend ID.
func (c *Client) CreateServiceIssue(ctx context.Context, issue ServiceIssue) (string, error) {
	if issue.Status == "" {
		issue.Status = "open"
	}
	if issue.Source == "" {
		issue.Source = "voice_assistant"
	}

	var result struct {
		IssueID string `json:"issue_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/service-issues", issue, &result); err != nil {
		return "", err
	}
	if result.IssueID == "" {
		return "", fmt.Errorf("directory: service issue created without an ID")
	}
	log.Info().Str("issue_id", result.IssueID).Msg("created service issue")
	return result.IssueID, nil
}

// CreateWorkerTask opens a staff follow-up task and returns its backend ID.
func (c *Client) CreateWorkerTask(ctx context.Context, task WorkerTask) (string, error) {
	if task.Status == "" {
		task.Status = "pending"
	}
	if task.Source == "" {
		task.Source = "voice_assistant"
	}

	var result struct {
		TaskID string `json:"task_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/worker-tasks", task, &result); err != nil {
		return "", err
	}
	if result.TaskID == "" {
		return "", fmt.Errorf("directory: worker task created without an ID")
	}
	return result.TaskID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("directory: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("directory: create request: %w", err)
	}
	req.Header.Set("X-RM12Api-ApiToken", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("directory: %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory: decode response: %w", err)
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package client talks to the daywich REST API. Client satisfies
// planner.EventStore, so a planner session can run against a remote server.
package client

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

	"github.com/dukerupert/daywich/internal/model"
	"github.com/dukerupert/daywich/internal/planner"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses one
// with a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

// Query narrows List results. Zero values apply no filter.
type Query struct {
	Term string
	View string
	Date string
}

type eventsEnvelope struct {
	Events []model.Event `json:"events"`
}

type deleteManyRequest struct {
	EventIDs []string `json:"eventIds"`
}

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) List(ctx context.Context) ([]model.Event, error) {
	return c.Search(ctx, Query{})
}

// Search lists the events matching q.
func (c *Client) Search(ctx context.Context, q Query) ([]model.Event, error) {
	params := url.Values{}
	if q.Term != "" {
		params.Set("q", q.Term)
	}
	if q.View != "" {
		params.Set("view", q.View)
	}
	if q.Date != "" {
		params.Set("date", q.Date)
	}
	path := "/api/events"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var env eventsEnvelope
	if err := c.do(ctx, "list events", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Events, nil
}

func (c *Client) Create(ctx context.Context, e model.Event) (*model.Event, error) {
	var created model.Event
	if err := c.do(ctx, "create event", http.MethodPost, "/api/events", e, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Update(ctx context.Context, id string, e model.Event) (*model.Event, error) {
	var updated model.Event
	if err := c.do(ctx, "update event", http.MethodPut, "/api/events/"+url.PathEscape(id), e, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete event", http.MethodDelete, "/api/events/"+url.PathEscape(id), nil, nil)
}

// CreateSeries posts a generated batch; the server assigns the shared repeat id.
func (c *Client) CreateSeries(ctx context.Context, events []model.Event) ([]model.Event, error) {
	var created []model.Event
	if err := c.do(ctx, "create events", http.MethodPost, "/api/events-list", eventsEnvelope{Events: events}, &created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) UpdateMany(ctx context.Context, events []model.Event) ([]model.Event, error) {
	var updated []model.Event
	if err := c.do(ctx, "update events", http.MethodPut, "/api/events-list", eventsEnvelope{Events: events}, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) DeleteMany(ctx context.Context, ids []string) error {
	return c.do(ctx, "delete events", http.MethodDelete, "/api/events-list", deleteManyRequest{EventIDs: ids}, nil)
}

// UpdateSeries returns the series instances as they were before the patch.
func (c *Client) UpdateSeries(ctx context.Context, repeatID string, patch model.SeriesPatch) ([]model.Event, error) {
	var before []model.Event
	if err := c.do(ctx, "update series", http.MethodPut, "/api/recurring-events/"+url.PathEscape(repeatID), patch, &before); err != nil {
		return nil, err
	}
	return before, nil
}

func (c *Client) DeleteSeries(ctx context.Context, repeatID string) error {
	return c.do(ctx, "delete series", http.MethodDelete, "/api/recurring-events/"+url.PathEscape(repeatID), nil, nil)
}

// do sends body as JSON and decodes the response into out when out is not
// nil. Transport failures come back as *planner.NetworkError and 404 as
// model.ErrNotFound.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &planner.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s: %w", op, &StatusError{StatusCode: resp.StatusCode, Message: e.Error})
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

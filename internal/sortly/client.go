// Package sortly is a thin client for the Sortly inventory API. It
// does no retrying; callers decide what a dependency fault means.
package sortly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxPages = 50

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx response from Sortly.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sortly api: status %d: %s", e.StatusCode, e.Body)
}

type NodeRef struct {
	Name string `json:"name"`
}

type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // "item" or "folder"
	Quantity  *float64  `json:"quantity,omitempty"`
	Location  *NodeRef  `json:"location,omitempty"`
	Parent    *NodeRef  `json:"parent,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// LocationName prefers the explicit location over the parent folder;
// Sortly reports one or the other depending on nesting.
func (it Item) LocationName() string {
	if it.Location != nil && it.Location.Name != "" {
		return it.Location.Name
	}
	if it.Parent != nil {
		return it.Parent.Name
	}
	return ""
}

func (it Item) IsFolder() bool { return it.Type == "folder" }

type listResponse struct {
	Data []Item `json:"data"`
}

// ListItems fetches every item updated since the given time, paging
// until a short page (capped defensively at maxPages).
func (c *Client) ListItems(ctx context.Context, updatedSince time.Time, perPage int) ([]Item, error) {
	if perPage <= 0 {
		perPage = 100
	}
	var all []Item
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("updated_since", updatedSince.UTC().Format(time.RFC3339))
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var resp listResponse
		if err := c.do(ctx, http.MethodGet, "/items?"+q.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if len(resp.Data) < perPage {
			break
		}
	}
	return all, nil
}

// SearchItemsByName filters items by name server-side.
func (c *Client) SearchItemsByName(ctx context.Context, name string) ([]Item, error) {
	q := url.Values{}
	q.Set("filter[name]", name)
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/items?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateItemQuantity writes an absolute quantity back to Sortly.
func (c *Client) UpdateItemQuantity(ctx context.Context, id int64, qty int) error {
	body := map[string]int{"quantity": qty}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/items/%d", id), body, nil)
}

// ListLocations returns the raw locations document; the API handler
// passes it through untouched.
func (c *Client) ListLocations(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/locations", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

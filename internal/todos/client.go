package todos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when the upstream API has no todo with the
// requested ID.
var ErrNotFound = errors.New("todo not found")

// Item is a single todo as returned by the upstream API. Items are immutable
// once fetched; nothing is persisted locally.
type Item struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`
}

// Client fetches todos from the upstream JSON API. The full list is cached in
// process after the first successful fetch; single-item lookups always go to
// the network.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger

	mu    sync.Mutex
	cache []Item
}

// NewClient creates a client for the todo API. baseURL is the list endpoint
// (e.g. https://jsonplaceholder.typicode.com/todos); single items are fetched
// from baseURL/{id}.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  log.New(log.Writer(), "[TODOS] ", log.LstdFlags),
	}
}

// List returns all todos from the upstream API. The first successful response
// is cached for the lifetime of the process.
func (c *Client) List(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	if c.cache != nil {
		items := c.cache
		c.mu.Unlock()
		return items, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch todos: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("todo API returned status %d", resp.StatusCode)
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}

	c.mu.Lock()
	c.cache = items
	c.mu.Unlock()
	c.logger.Printf("fetched %d todos from API", len(items))

	return items, nil
}

// Get fetches a single todo by ID. Returns ErrNotFound on a 404 from the
// upstream API. Results are never cached.
func (c *Client) Get(ctx context.Context, id int) (*Item, error) {
	url := fmt.Sprintf("%s/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch todo %d: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("todo API returned status %d", resp.StatusCode)
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode todo %d: %w", id, err)
	}
	return &item, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GameSession is the display metadata for one room, fetched by id. The room
// client only reads it; the backend owns the resource.
type GameSession struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HostID     string `json:"hostId"`
	HostName   string `json:"hostName"`
	Format     string `json:"format"`
	MaxPlayers int    `json:"maxPlayers"`
	Status     string `json:"status"`
}

// Client talks to the game-sessions REST resource.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetSession fetches session metadata by id.
func (c *Client) GetSession(ctx context.Context, id string) (*GameSession, error) {
	url := fmt.Sprintf("%s/api/game-sessions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch session: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var session GameSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Leave notifies the backend of an explicit leave. Best effort; the caller
// surfaces failures without blocking navigation.
func (c *Client) Leave(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/api/game-sessions/%s/leave", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("leave session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("leave session: unexpected status %d", resp.StatusCode)
	}
	return nil
}

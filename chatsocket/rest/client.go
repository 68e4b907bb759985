package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client provides access to the chat REST API: login, users, conversation
// lookup and message history.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "http://localhost:3001/api/".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the access token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the access token in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authentication endpoints

// Login authenticates and remembers the returned token for later calls.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "auth/login", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return &resp, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var resp User
	if err := c.post(ctx, "auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Users

// ListUsers returns every user visible to the caller.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp []User
	if err := c.get(ctx, "users", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Conversations

// CheckConversation returns the direct conversation between two users,
// creating it server side when needed.
func (c *Client) CheckConversation(ctx context.Context, req CheckConversationRequest) (*ConversationInfo, error) {
	var resp ConversationInfo
	if err := c.post(ctx, "conversations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConversationMessages fetches the message history of a conversation.
func (c *Client) ConversationMessages(ctx context.Context, conversationID string) (*MessagesResponse, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("empty conversation id")
	}
	var resp MessagesResponse
	if err := c.get(ctx, "messages/conversation/"+url.PathEscape(conversationID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			switch {
			case errResp.Message != "":
				apiErr.Message = errResp.Message
			case errResp.Error != "":
				apiErr.Message = errResp.Error
			}
		}
		return apiErr
	}

	if dest != nil && len(body) > 0 {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

package editor

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

	"github.com/eringen/postdesk/content"
)

// APIError is a non-2xx response from the content API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("content api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("content api: %d: %s", e.StatusCode, e.Message)
}

// Client talks to the JSON content API. It implements Saver.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the API at baseURL authenticating with a
// bearer token.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create posts a new post.
func (c *Client) Create(ctx context.Context, req content.CreateRequest) (content.Post, error) {
	var p content.Post
	err := c.do(ctx, http.MethodPost, "/posts/content", nil, req, &p)
	return p, err
}

// Update replaces fields of an existing post.
func (c *Client) Update(ctx context.Context, req content.UpdateRequest) (content.Post, error) {
	var p content.Post
	err := c.do(ctx, http.MethodPut, "/posts/content", nil, req, &p)
	return p, err
}

// GetBySlug fetches one post.
func (c *Client) GetBySlug(ctx context.Context, slug string) (content.Post, error) {
	var p content.Post
	err := c.do(ctx, http.MethodGet, "/posts/content", url.Values{"slug": {slug}}, nil, &p)
	return p, err
}

// List fetches posts matching f.
func (c *Client) List(ctx context.Context, f content.Filter) ([]content.Post, error) {
	var posts []content.Post
	err := c.do(ctx, http.MethodGet, "/posts/content", url.Values{"status": {string(f)}}, nil, &posts)
	return posts, err
}

// Delete removes a post by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/content", url.Values{"id": {id}}, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

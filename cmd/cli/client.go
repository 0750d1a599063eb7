package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
}

// apiError is a failed envelope returned by the server.
type apiError struct {
	Status  int
	Message string
	Details []string
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, e.Message)
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return msg
}

type apiClient struct {
	base  string
	http  *http.Client
	token string
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.base, "/")+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		return &apiError{Status: resp.StatusCode, Message: env.Message, Details: env.Errors}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type authResult struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

func (c *apiClient) register(ctx context.Context, email, password, first, last string) (authResult, error) {
	var res authResult
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": password, "firstName": first, "lastName": last,
	}, &res)
	return res, err
}

func (c *apiClient) login(ctx context.Context, email, password string) (authResult, error) {
	var res authResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &res)
	return res, err
}

func (c *apiClient) whoami(ctx context.Context) (json.RawMessage, error) {
	var user json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/auth/validate", nil, &user)
	return user, err
}

func (c *apiClient) refresh(ctx context.Context) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, &res)
	return res.Token, err
}

func (c *apiClient) logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *apiClient) deleteUser(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodDelete, "/api/auth/users/"+url.PathEscape(email), nil, nil)
}

func (c *apiClient) deactivate(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/auth/users/%d/deactivate", id), nil, nil)
}

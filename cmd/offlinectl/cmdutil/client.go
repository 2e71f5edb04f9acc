package cmdutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inspectra.app/offline-gateway/app/domain/auth"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/utils/httpclients"
	"resty.dev/v3"
)

const adminTokenTTL = 5 * time.Minute

// Client talks to the gateway's /sw endpoints.
type Client struct {
	rest        *resty.Client
	server      string
	adminSecret []byte
	cookies     []*http.Cookie
}

func NewClient(server string, adminSecret []byte) *Client {
	return &Client{
		rest:        httpclients.NewClient("OfflineCtl"),
		server:      strings.TrimRight(server, "/"),
		adminSecret: adminSecret,
	}
}

// WithCookie returns a copy of c that sends cookie on every request.
func (c *Client) WithCookie(cookie *http.Cookie) *Client {
	cp := *c
	cp.cookies = append(append([]*http.Cookie(nil), c.cookies...), cookie)
	return &cp
}

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("gateway returned %d: %s (code %s)", e.Status, e.Detail, e.Code)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, false, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, body, false, out)
}

// AdminGet and AdminDelete sign a short-lived admin token with the shared
// secret.
func (c *Client) AdminGet(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, true, out)
}

func (c *Client) AdminDelete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, true, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, admin bool, out any) error {
	r := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetDoNotParseResponse(true)
	if len(c.cookies) > 0 {
		r = r.SetCookies(c.cookies)
	}
	if body != nil {
		r = r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if admin {
		token, err := auth.CreateJwtSignedString(auth.NewAdminClaim("offlinectl", adminTokenTTL, time.Now()), c.adminSecret)
		if err != nil {
			return fmt.Errorf("sign admin token: %w", err)
		}
		r = r.SetHeader("Authorization", "Bearer "+token)
	}

	resp, err := r.Execute(method, c.server+path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	raw := resp.RawResponse
	if raw == nil {
		return fmt.Errorf("%s %s: empty response", method, path)
	}
	defer raw.Body.Close()

	payload, err := io.ReadAll(raw.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if raw.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: raw.StatusCode, Detail: strings.TrimSpace(string(payload))}
		var errResp responses.ErrorResponse
		if json.Unmarshal(payload, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Code
			apiErr.Detail = errResp.Error
		}
		return apiErr
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

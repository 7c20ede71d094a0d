package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"micrecorder/internal/application"
	"micrecorder/internal/infra/library"
)

// Client talks to a running recorder daemon.
type Client struct {
	http *resty.Client
}

// NewClient sends authToken as X-Auth-Token when it is set.
func NewClient(baseURL, authToken string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if authToken != "" {
		c.SetHeader("X-Auth-Token", authToken)
	}
	return &Client{http: c}
}

// Start asks the daemon to record to outputPath.
func (c *Client) Start(ctx context.Context, outputPath, sourceMode string) (*application.Status, error) {
	return c.do(ctx, "POST", "/start", &StartRequest{OutputPath: outputPath, SourceMode: sourceMode})
}

// Stop finalizes the current recording, if any.
func (c *Client) Stop(ctx context.Context) (*application.Status, error) {
	return c.do(ctx, "POST", "/stop", nil)
}

// Status reports the daemon state without changing it.
func (c *Client) Status(ctx context.Context) (*application.Status, error) {
	return c.do(ctx, "GET", "/status", nil)
}

// Recordings lists finished files in the daemon's output directory.
func (c *Client) Recordings(ctx context.Context) ([]library.Entry, error) {
	var entries []library.Entry
	var apiErr errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&entries).
		SetError(&apiErr).
		Get("/recordings")
	if err != nil {
		return nil, fmt.Errorf("GET /recordings: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET /recordings: %s: %s", resp.Status(), apiErr.Error)
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*application.Status, error) {
	var status application.Status
	var apiErr errorResponse

	req := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return nil, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status(), apiErr.Error)
		}
		return nil, fmt.Errorf("%s %s: %s", method, path, resp.Status())
	}
	return &status, nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/stalker/internal/errors"
)

// client talks to a running stalker server.
type client struct {
	base     string
	password string
	http     *http.Client
}

func newClient(c *cli.Context) *client {
	return &client{
		base:     strings.TrimRight(c.String("server"), "/"),
		password: c.String("password"),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// errorBody is the server's error envelope.
type errorBody struct {
	Error struct {
		Code    errors.ErrorCode `json:"code"`
		Message string           `json:"message"`
		Status  int              `json:"status"`
	} `json:"error"`
}

// do sends body as JSON (when non-nil) and decodes a success response into out.
// Server errors come back as StalkerErrors.
func (cl *client) do(ctx context.Context, method, path string, body any, auth bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, cl.base+path, reader)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid server URL: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if cl.password == "" {
			return errors.NewUnauthorized("password is required (--password or STALKER_PASSWORD)")
		}
		req.Header.Set("Authorization", "Bearer "+cl.password)
	}

	resp, err := cl.http.Do(req)
	if err != nil {
		return errors.NewUpstream("stalker", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error.Code == "" {
			return errors.NewUpstreamStatus("stalker", resp.StatusCode)
		}
		return &errors.StalkerError{Code: eb.Error.Code, Status: eb.Error.Status, Message: eb.Error.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstream("stalker", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

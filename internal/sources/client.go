// Package sources implements the polled vendor adapters.
//
// Each adapter turns one vendor response into a poll.Fact. Any non-2xx status
// or malformed payload is an error; the scheduler keeps the previous fact.
package sources

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/hpungsan/stalker/internal/errors"
)

// NewHTTPClient returns a client that negotiates HTTP/2 with vendors that support it.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// doJSON sends req and decodes a 2xx JSON body into out.
func doJSON(ctx context.Context, client *http.Client, service string, req *http.Request, out any) error {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return errors.NewUpstream(service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return errors.NewUpstreamStatus(service, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstream(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

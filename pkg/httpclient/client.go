// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Client is an *http.Client with the response cap it was configured with.
type Client struct {
	*http.Client
	maxResponseBytes int64
}

// New creates a new HTTP client with the given configuration.
// The client includes:
//   - Request logging with sanitized URLs
//   - User-Agent header injection
//   - Correlation ID propagation
//   - TLS 1.2 minimum, TLS 1.3 preferred
//
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},

		// A CLI makes a handful of requests per process.
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		Client: &http.Client{
			Transport: newLoggingTransport(baseTransport, cfg.UserAgent),
			Timeout:   cfg.Timeout,
		},
		maxResponseBytes: cfg.MaxResponseBytes,
	}, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	safeURL := SanitizeURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return aixerrors.New(aixerrors.CodeRequestFailed, "Invalid request URL",
			aixerrors.WithCause(err), aixerrors.WithField("url", safeURL))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return aixerrors.New(aixerrors.CodeRequestFailed, "",
			aixerrors.WithCause(unwrapURLError(err)), aixerrors.WithField("url", safeURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return aixerrors.New(aixerrors.CodeUnexpectedResponse,
			fmt.Sprintf("Server responded with status %d", resp.StatusCode),
			aixerrors.WithContext(map[string]any{"url": safeURL, "status": resp.StatusCode}))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return aixerrors.New(aixerrors.CodeRequestFailed, "Failed to read response",
			aixerrors.WithCause(err), aixerrors.WithField("url", safeURL))
	}
	if int64(len(body)) > c.maxResponseBytes {
		return aixerrors.New(aixerrors.CodeUnexpectedResponse,
			fmt.Sprintf("Response exceeds %d bytes", c.maxResponseBytes),
			aixerrors.WithField("url", safeURL))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return aixerrors.New(aixerrors.CodeUnexpectedResponse, "Response is not valid JSON",
			aixerrors.WithCause(err), aixerrors.WithField("url", safeURL))
	}
	return nil
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the
// unsanitized URL.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}

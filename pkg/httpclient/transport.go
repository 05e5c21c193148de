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
	"net/http"
	"time"

	"github.com/tombee/aix/internal/log"
)

// loggingTransport wraps an http.RoundTripper to add:
// - Request/response logging with sanitized URLs
// - User-Agent header injection
// - Correlation ID propagation
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
}

// newLoggingTransport creates a new logging transport that wraps the base transport.
func newLoggingTransport(base http.RoundTripper, userAgent string) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &loggingTransport{
		base:      base,
		userAgent: userAgent,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	ctx := req.Context()

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if id := log.OperationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	logger := log.WithComponent(log.FromContext(ctx), "httpclient")
	logURL := sanitizeURL(req.URL)

	if err != nil {
		logger.Debug("http request failed",
			"method", req.Method,
			"url", logURL,
			log.Duration(duration),
			log.Error(err),
		)
		return nil, err
	}

	logger.Debug("http request",
		"method", req.Method,
		"url", logURL,
		"status", resp.StatusCode,
		log.Duration(duration),
	)
	return resp, nil
}

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

// Package httpclient provides the HTTP client aix uses for outbound
// requests such as the release check.
//
// Create a client with default settings:
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	var latest struct{ Version string `json:"version"` }
//	err = client.GetJSON(ctx, url, &latest)
//
// # Security
//
//   - Sensitive query parameters (api_key, token, password, etc.) are redacted from logs
//   - TLS 1.2 minimum with certificate validation enabled
//   - Response bodies are read through a size cap
//
// # Observability
//
// Requests are logged at debug level through the logger carried by the
// request context (see internal/log.FromContext). Failures reach the user
// once, as the classified error GetJSON returns. When the context carries
// an operation id it is sent as X-Correlation-ID.
//
// # Errors
//
// GetJSON returns classified errors: AIX-NET-501 when the request cannot
// be completed and AIX-NET-502 when the server answers with something
// other than a 2xx JSON document. Context cancellation is returned as is
// so the caller's supervisor can classify it.
package httpclient

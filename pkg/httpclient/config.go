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
	"fmt"
	"time"
)

// Config configures the HTTP client.
type Config struct {
	// Timeout is the maximum duration for a complete request.
	// Default: 10s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string

	// MaxResponseBytes caps how much of a response body GetJSON reads.
	// Default: 1MB. Must be > 0.
	MaxResponseBytes int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:          10 * time.Second,
		UserAgent:        UserAgent("dev"),
		MaxResponseBytes: 1 << 20,
	}
}

// UserAgent returns the User-Agent aix sends for the given version.
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return "aix/" + version
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("max_response_bytes must be > 0, got %d", c.MaxResponseBytes)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}

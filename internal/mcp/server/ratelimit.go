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
package server

import (
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting for MCP tool calls
type RateLimiter struct {
	limiter   *rate.Limiter
	perMinute int
}

// NewRateLimiter creates a rate limiter allowing callsPerMinute tool
// calls per minute, with a burst of the same size.
func NewRateLimiter(callsPerMinute int) *RateLimiter {
	if callsPerMinute <= 0 {
		callsPerMinute = DefaultRateLimit
	}
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), callsPerMinute),
		perMinute: callsPerMinute,
	}
}

// Allow checks if any tool call is allowed
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// PerMinute returns the configured limit.
func (rl *RateLimiter) PerMinute() int {
	return rl.perMinute
}

// Available returns the whole number of calls that could be made now.
func (rl *RateLimiter) Available() int {
	return max(0, int(rl.limiter.Tokens()))
}

func newRequestID() string {
	return uuid.NewString()
}

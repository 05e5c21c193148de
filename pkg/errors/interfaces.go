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
package errors

// UserVisibleError is implemented by errors that carry their own
// end-user wording. Classify keeps that wording when such an error
// reaches a command boundary unclassified.
type UserVisibleError interface {
	error

	// IsUserVisible reports whether UserMessage is safe to show.
	IsUserVisible() bool

	UserMessage() string

	// Suggestion is empty when there is nothing to suggest.
	Suggestion() string
}

// ErrorClassifier exposes the category and recoverability of an error
// without requiring callers to know its concrete type.
type ErrorClassifier interface {
	error

	// ErrorType returns the category name, for example "filesystem".
	ErrorType() string

	IsRetryable() bool
}

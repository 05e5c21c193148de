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

import (
	"errors"
	"strings"
)

// DocsBaseURL is the error reference page. Anchors are the lower-cased
// code, so the page layout must keep one heading per code.
const DocsBaseURL = "https://tombee.github.io/aix/reference/errors/"

// Line prefixes used by Format. Renderers key their styling off these.
const (
	PrefixSuggestion = "  Suggestion: "
	PrefixCause      = "  Caused by: "
	PrefixDocs       = "  Docs: "
)

// DocsURL returns the documentation link for code.
func DocsURL(code Code) string {
	return DocsBaseURL + "#" + code.Anchor()
}

// Format renders err for humans: code and message, the suggestion when
// present, the cause chain when verbose, and a docs link last.
func Format(err *ClassifiedError, verbose bool) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("Error [")
	b.WriteString(string(err.code))
	b.WriteString("]: ")
	b.WriteString(err.message)
	b.WriteString("\n")

	if err.suggestion != "" {
		b.WriteString(PrefixSuggestion)
		b.WriteString(err.suggestion)
		b.WriteString("\n")
	}

	if verbose {
		for _, c := range causeChain(err) {
			b.WriteString(PrefixCause)
			b.WriteString(c)
			b.WriteString("\n")
		}
	}

	b.WriteString(PrefixDocs)
	b.WriteString(DocsURL(err.code))

	return b.String()
}

// causeChain lists each wrapped cause's own message, outermost first.
func causeChain(err *ClassifiedError) []string {
	var chain []string
	for cause := err.cause; cause != nil; cause = errors.Unwrap(cause) {
		var ce *ClassifiedError
		if errors.As(cause, &ce) && ce == cause {
			chain = append(chain, "["+string(ce.code)+"] "+ce.message)
			continue
		}
		msg := cause.Error()
		if next := errors.Unwrap(cause); next != nil {
			msg = strings.TrimSuffix(msg, ": "+next.Error())
		}
		chain = append(chain, msg)
	}
	return chain
}

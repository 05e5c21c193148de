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
	"sort"
	"strings"
)

// Code is a stable error identifier of the form AIX-<SEGMENT>-<NNN>.
// The segment selects the category and the exit code band.
type Code string

// Code separator used between the prefix, segment and sequence number.
const codeSeparator = "-"

// Initialization errors (exit 64)
const (
	CodeAlreadyInitialized  Code = "AIX-INIT-101"
	CodeUnsupportedPlatform Code = "AIX-INIT-102"
	CodeUnknownPreset       Code = "AIX-INIT-103"
	CodeTemplateRender      Code = "AIX-INIT-104"
)

// Validation errors (exit 65)
const (
	CodeInvalidOption  Code = "AIX-VAL-201"
	CodeInputTooLong   Code = "AIX-VAL-202"
	CodeInvalidKey     Code = "AIX-VAL-203"
	CodeInvalidCommand Code = "AIX-VAL-204"
)

// Configuration errors (exit 66)
const (
	CodeConfigUnreadable Code = "AIX-CONFIG-301"
	CodeConfigInvalid    Code = "AIX-CONFIG-302"
)

// Filesystem errors (exit 74)
const (
	CodePermissionDenied    Code = "AIX-FS-401"
	CodePathNotFound        Code = "AIX-FS-402"
	CodeWriteFailed         Code = "AIX-FS-403"
	CodeDatabaseUnavailable Code = "AIX-FS-404"
)

// Network errors (exit 75)
const (
	CodeRequestFailed      Code = "AIX-NET-501"
	CodeUnexpectedResponse Code = "AIX-NET-502"
)

// Protocol-server (MCP) errors (exit 76)
const (
	CodeServerFailed Code = "AIX-MCP-601"
	CodeToolFailed   Code = "AIX-MCP-602"
	CodeRateLimited  Code = "AIX-MCP-603"
)

// Hook errors (exit 77)
const (
	CodeHookFailed       Code = "AIX-HOOK-701"
	CodeUnknownHookEvent Code = "AIX-HOOK-702"
)

// General errors (exit 1)
const (
	CodeUnknown    Code = "AIX-GEN-001"
	CodeUnexpected Code = "AIX-GEN-002"
	CodeAborted    Code = "AIX-GEN-003"
)

// Segment returns the token between the first and second separator,
// e.g. "INIT" for AIX-INIT-101. Returns "" when the code has fewer than
// three parts.
func (c Code) Segment() string {
	parts := strings.SplitN(string(c), codeSeparator, 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// Anchor returns the documentation anchor for the code (lower-cased).
func (c Code) Anchor() string {
	return strings.ToLower(string(c))
}

// Entry is a read-only catalog record.
type Entry struct {
	Code        Code
	Category    Category
	Description string
	Suggestion  string
	Recoverable bool
}

// catalog is the single source of truth for error codes. It is never
// mutated after package initialization.
var catalog = map[Code]Entry{
	CodeAlreadyInitialized: {
		Category:    CategoryInitialization,
		Description: "Project is already initialized",
		Suggestion:  "Re-run with --force to overwrite the existing files",
		Recoverable: true,
	},
	CodeUnsupportedPlatform: {
		Category:    CategoryInitialization,
		Description: "Unsupported platform",
		Suggestion:  "Run aix on linux, darwin, windows or freebsd",
		Recoverable: false,
	},
	CodeUnknownPreset: {
		Category:    CategoryInitialization,
		Description: "Unknown preset",
		Suggestion:  "Run 'aix presets' to list the available presets",
		Recoverable: true,
	},
	CodeTemplateRender: {
		Category:    CategoryInitialization,
		Description: "Preset template failed to render",
		Suggestion:  "Report this as a bug including the preset name",
		Recoverable: false,
	},
	CodeInvalidOption: {
		Category:    CategoryValidation,
		Description: "Invalid option value",
		Suggestion:  "Check the command help with --help",
		Recoverable: true,
	},
	CodeInputTooLong: {
		Category:    CategoryValidation,
		Description: "Input exceeds maximum allowed length",
		Suggestion:  "Shorten the value or raise AIX_MAX_INPUT_LENGTH",
		Recoverable: true,
	},
	CodeInvalidKey: {
		Category:    CategoryValidation,
		Description: "Invalid key",
		Suggestion:  "Keys may contain letters, digits, '_', '-' and '.' (max 100 characters)",
		Recoverable: true,
	},
	CodeInvalidCommand: {
		Category:    CategoryValidation,
		Description: "Invalid command-line arguments",
		Suggestion:  "Check the command help with --help",
		Recoverable: true,
	},
	CodeConfigUnreadable: {
		Category:    CategoryConfiguration,
		Description: "Configuration file could not be read",
		Suggestion:  "Check that the config file exists and is valid YAML",
		Recoverable: true,
	},
	CodeConfigInvalid: {
		Category:    CategoryConfiguration,
		Description: "Invalid configuration value",
		Suggestion:  "Fix the value in the config file or environment",
		Recoverable: true,
	},
	CodePermissionDenied: {
		Category:    CategoryFilesystem,
		Description: "Permission denied",
		Suggestion:  "Check the permissions of the target directory",
		Recoverable: true,
	},
	CodePathNotFound: {
		Category:    CategoryFilesystem,
		Description: "Path not found",
		Suggestion:  "Check that the path exists",
		Recoverable: true,
	},
	CodeWriteFailed: {
		Category:    CategoryFilesystem,
		Description: "Failed to write file",
		Suggestion:  "Check available disk space and directory permissions",
		Recoverable: true,
	},
	CodeDatabaseUnavailable: {
		Category:    CategoryFilesystem,
		Description: "Project memory database is unavailable",
		Suggestion:  "Check AIX_MEMORY_DB and the permissions of its directory",
		Recoverable: true,
	},
	CodeRequestFailed: {
		Category:    CategoryNetwork,
		Description: "Network request failed",
		Suggestion:  "Check your network connection and try again",
		Recoverable: true,
	},
	CodeUnexpectedResponse: {
		Category:    CategoryNetwork,
		Description: "Unexpected response from server",
		Suggestion:  "Try again later",
		Recoverable: true,
	},
	CodeServerFailed: {
		Category:    CategoryProtocolServer,
		Description: "MCP server failed",
		Suggestion:  "Run with --debug to see the server log",
		Recoverable: true,
	},
	CodeToolFailed: {
		Category:    CategoryProtocolServer,
		Description: "MCP tool call failed",
		Suggestion:  "Check the tool arguments",
		Recoverable: true,
	},
	CodeRateLimited: {
		Category:    CategoryProtocolServer,
		Description: "Rate limit exceeded",
		Suggestion:  "Wait a minute or raise AIX_MEMORY_RATE_LIMIT",
		Recoverable: true,
	},
	CodeHookFailed: {
		Category:    CategoryHook,
		Description: "Hook script failed",
		Suggestion:  "Run the hook script directly to see its output",
		Recoverable: true,
	},
	CodeUnknownHookEvent: {
		Category:    CategoryHook,
		Description: "Unknown hook event",
		Suggestion:  "Run 'aix hooks list' to see the supported events",
		Recoverable: true,
	},
	CodeUnknown: {
		Category:    CategoryGeneral,
		Description: "An unknown error occurred",
		Suggestion:  "Run with --verbose for details and report the issue if it persists",
		Recoverable: true,
	},
	CodeUnexpected: {
		Category:    CategoryGeneral,
		Description: "An unexpected error occurred",
		Suggestion:  "Run with --verbose for details and report the issue if it persists",
		Recoverable: true,
	},
	CodeAborted: {
		Category:    CategoryGeneral,
		Description: "Operation did not complete",
		Suggestion:  "Increase the timeout with --timeout or AIX_TIMEOUT_MS and try again",
		Recoverable: true,
	},
}

// Lookup returns the catalog entry for code.
func Lookup(code Code) (Entry, bool) {
	e, ok := catalog[code]
	if !ok {
		return Entry{}, false
	}
	e.Code = code
	return e, true
}

// Codes returns every cataloged code in sorted order.
func Codes() []Code {
	codes := make([]Code, 0, len(catalog))
	for c := range catalog {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// resolve returns the entry for code or the unknown-error fallback.
func resolve(code Code) Entry {
	if e, ok := Lookup(code); ok {
		return e
	}
	e, _ := Lookup(CodeUnknown)
	return e
}

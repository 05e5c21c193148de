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

// Category groups error codes into exit-code bands.
type Category string

const (
	CategoryInitialization Category = "initialization"
	CategoryValidation     Category = "validation"
	CategoryConfiguration  Category = "configuration"
	CategoryFilesystem     Category = "filesystem"
	CategoryNetwork        Category = "network"
	CategoryProtocolServer Category = "protocol-server"
	CategoryHook           Category = "hook"
	CategoryGeneral        Category = "general"
)

// Process exit statuses. Category bands sit in the 64-78 range
// reserved for application-defined statuses (sysexits.h).
const (
	ExitSuccess        = 0
	ExitGeneral        = 1
	ExitInitialization = 64
	ExitValidation     = 65
	ExitConfiguration  = 66
	ExitFilesystem     = 74
	ExitNetwork        = 75
	ExitProtocolServer = 76
	ExitHook           = 77
)

var segmentExitCodes = map[string]int{
	"INIT":   ExitInitialization,
	"VAL":    ExitValidation,
	"CONFIG": ExitConfiguration,
	"FS":     ExitFilesystem,
	"NET":    ExitNetwork,
	"MCP":    ExitProtocolServer,
	"HOOK":   ExitHook,
}

var categoryExitCodes = map[Category]int{
	CategoryInitialization: ExitInitialization,
	CategoryValidation:     ExitValidation,
	CategoryConfiguration:  ExitConfiguration,
	CategoryFilesystem:     ExitFilesystem,
	CategoryNetwork:        ExitNetwork,
	CategoryProtocolServer: ExitProtocolServer,
	CategoryHook:           ExitHook,
}

// ExitCodeFor maps a code to a process exit status using the code's
// category segment. It is total: unknown or malformed codes map to
// ExitGeneral.
func ExitCodeFor(code Code) int {
	if status, ok := segmentExitCodes[code.Segment()]; ok {
		return status
	}
	return ExitGeneral
}

// ExitCode returns the exit status for a category.
func (c Category) ExitCode() int {
	if status, ok := categoryExitCodes[c]; ok {
		return status
	}
	return ExitGeneral
}

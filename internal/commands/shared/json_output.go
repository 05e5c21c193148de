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

package shared

import (
	"encoding/json"
)

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONResult is a successful response carrying command data.
type JSONResult struct {
	JSONResponse
	Data any `json:"data"`
}

// RenderJSON formats data in the shared envelope as indented JSON. Command
// handlers return it as their result when --json is set.
func RenderJSON(command string, data any) (string, error) {
	resp := JSONResult{
		JSONResponse: JSONResponse{
			Version: "1.0",
			Command: command,
			Success: true,
		},
		Data: data,
	}
	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

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
/*
Package cli provides the root command for aix.

It builds the Cobra command tree, resolves configuration once per
process, and installs the shared runtime (reporter, tracer, operation
id holder) that supervised commands read. Individual commands live in
the internal/commands subpackages.

# Command Tree

	aix
	├── init          Scaffold AI assistant files from a preset
	├── presets       List presets
	├── doctor        Report detected tools, config and memory health
	├── hooks         List and run project hook scripts
	├── memory        Project memory database and MCP server
	├── errors        Browse the error catalog
	├── version       Show version, optionally check for updates
	├── completion    Generate shell completions
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	os.Exit(cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))

# Global Flags

	--verbose, -v    Show error causes and extra detail
	--json           JSON results and structured log lines
	--debug          Debug output
	--no-color       Plain output
	--config         Path to config file
	--timeout        Per-command timeout in milliseconds

# Error Handling

Supervised commands render their own failures. Execute classifies and
renders whatever is left (flag parsing, unknown commands, configuration)
and returns the exit status of the error's category.
*/
package cli

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

package version

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
	"github.com/tombee/aix/pkg/httpclient"
)

// VersionInfo contains version metadata
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`

	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available,omitempty"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

// release is the subset of the release endpoint's response aix reads.
type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version, commit hash, and build date for aix.

With --check, the release endpoint (update.url in the config file or
AIX_UPDATE_URL) is queried and the latest published version is reported.`,
		Args: cobra.NoArgs,
		RunE: shared.Supervised("version", runVersion),
	}

	cmd.Flags().Bool("check", false, "Check whether a newer release is available")

	return cmd
}

func runVersion(ctx context.Context, opts validate.Options) (string, error) {
	v, c, b := shared.GetVersion()
	info := VersionInfo{
		Version:   v,
		Commit:    c,
		BuildDate: b,
	}

	if opts.Bool("check") {
		if err := checkLatest(ctx, &info); err != nil {
			return "", err
		}
	}

	if shared.GetJSON() {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal version info: %w", err)
		}
		return string(data), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "aix version %s\n", info.Version)
	fmt.Fprintf(&sb, "  commit:     %s\n", info.Commit)
	fmt.Fprintf(&sb, "  build date: %s\n", info.BuildDate)
	if info.Latest != "" {
		fmt.Fprintf(&sb, "  latest:     %s\n", info.Latest)
		switch {
		case info.UpdateAvailable:
			fmt.Fprintf(&sb, "\nA newer release is available: %s\n", info.ReleaseURL)
		case !semver.IsValid(canonical(info.Version)):
			sb.WriteString("\nRunning a development build.\n")
		default:
			sb.WriteString("\nYou are running the latest release.\n")
		}
	}
	return sb.String(), nil
}

func checkLatest(ctx context.Context, info *VersionInfo) error {
	rt := shared.GetRuntime()

	cfg := httpclient.DefaultConfig()
	cfg.UserAgent = httpclient.UserAgent(info.Version)
	client, err := httpclient.New(cfg)
	if err != nil {
		return err
	}

	var rel release
	if err := client.GetJSON(ctx, rt.Config.Update.URL, &rel); err != nil {
		return err
	}

	latest := canonical(rel.TagName)
	if !semver.IsValid(latest) {
		return aixerrors.New(aixerrors.CodeUnexpectedResponse,
			"Release endpoint returned an invalid version",
			aixerrors.WithField("version", rel.TagName))
	}

	info.Latest = latest
	info.ReleaseURL = rel.HTMLURL
	if current := canonical(info.Version); semver.IsValid(current) {
		info.UpdateAvailable = semver.Compare(latest, current) > 0
	}
	return nil
}

// canonical returns v with the leading "v" semver requires.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

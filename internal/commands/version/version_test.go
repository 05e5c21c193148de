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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/config"
	"github.com/tombee/aix/internal/reporter"
	"github.com/tombee/aix/internal/testing/clitest"
)

func setVersion(t *testing.T, v string) {
	t.Helper()
	shared.SetVersion(v, "test123", "2025-12-22")
	t.Cleanup(func() { shared.SetVersion("dev", "unknown", "unknown") })
}

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withUpdateURL(url string) func(*config.Config) {
	return func(c *config.Config) { c.Update.URL = url }
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	assert.Equal(t, "version", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("check"))
}

func TestVersionOutput(t *testing.T) {
	setVersion(t, "1.0.0")
	env := clitest.New(t, clitest.Options{})

	require.NoError(t, env.Execute(NewVersionCommand()))

	assert.Contains(t, env.Out.String(), "aix version 1.0.0")
	assert.Contains(t, env.Out.String(), "commit:     test123")
	assert.NotContains(t, env.Out.String(), "latest")
}

func TestVersionJSONOutput(t *testing.T) {
	setVersion(t, "1.0.0")
	env := clitest.New(t, clitest.Options{})
	*shared.RegisterFlagPointers().JSON = true

	require.NoError(t, env.Execute(NewVersionCommand()))

	var info VersionInfo
	require.NoError(t, json.Unmarshal(env.Out.Bytes(), &info))
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "test123", info.Commit)
	assert.Equal(t, "2025-12-22", info.BuildDate)
}

func TestVersionCheck(t *testing.T) {
	tests := []struct {
		name    string
		running string
		tag     string
		want    string
	}{
		{name: "update available", running: "1.0.0", tag: "v1.2.0", want: "A newer release is available: https://example.com/r"},
		{name: "up to date", running: "1.2.0", tag: "v1.2.0", want: "You are running the latest release."},
		{name: "ahead of release", running: "v1.3.0-rc.1", tag: "1.2.0", want: "You are running the latest release."},
		{name: "development build", running: "dev", tag: "v1.2.0", want: "Running a development build."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setVersion(t, tt.running)
			srv := releaseServer(t, http.StatusOK, `{"tag_name":"`+tt.tag+`","html_url":"https://example.com/r"}`)
			env := clitest.New(t, clitest.Options{Configure: withUpdateURL(srv.URL)})

			require.NoError(t, env.Execute(NewVersionCommand(), "--check"))

			assert.Contains(t, env.Out.String(), "latest:")
			assert.Contains(t, env.Out.String(), tt.want)
		})
	}
}

func TestVersionCheck_JSON(t *testing.T) {
	setVersion(t, "1.0.0")
	srv := releaseServer(t, http.StatusOK, `{"tag_name":"v2.0.0","html_url":"https://example.com/r"}`)
	env := clitest.New(t, clitest.Options{Configure: withUpdateURL(srv.URL)})
	*shared.RegisterFlagPointers().JSON = true

	require.NoError(t, env.Execute(NewVersionCommand(), "--check"))

	var info VersionInfo
	require.NoError(t, json.Unmarshal(env.Out.Bytes(), &info))
	assert.Equal(t, "v2.0.0", info.Latest)
	assert.True(t, info.UpdateAvailable)
}

func TestVersionCheck_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "", code: "AIX-NET-502"},
		{name: "invalid tag", status: http.StatusOK, body: `{"tag_name":"latest"}`, code: "AIX-NET-502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setVersion(t, "1.0.0")
			srv := releaseServer(t, tt.status, tt.body)
			env := clitest.New(t, clitest.Options{Configure: withUpdateURL(srv.URL)})

			err := env.Execute(NewVersionCommand(), "--check")
			require.Error(t, err)

			assert.Equal(t, 75, clitest.ExitCode(err))
			assert.Empty(t, env.Out.String())
			assert.Contains(t, env.Err.String(), tt.code)
		})
	}
}

func TestVersionCheck_Structured(t *testing.T) {
	setVersion(t, "1.0.0")
	env := clitest.New(t, clitest.Options{Mode: reporter.ModeStructured, Configure: withUpdateURL("http://127.0.0.1:1/latest")})

	err := env.Execute(NewVersionCommand(), "--check")
	require.Error(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(env.Err.Bytes(), &line))
	assert.Equal(t, "AIX-NET-501", line["code"])
	assert.Equal(t, float64(75), line["exitCode"])
	assert.NotEmpty(t, line["operationId"])
}

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

// Package reporter renders command outcomes either as colored text for
// people or as one JSON object per line for log collectors. A Reporter
// is fixed to one mode for its lifetime.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/supervisor"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Mode selects the output channel format.
type Mode string

const (
	ModeHuman      Mode = "human"
	ModeStructured Mode = "structured"
)

// Options configures a Reporter.
type Options struct {
	Mode    Mode
	Verbose bool
	Debug   bool

	// Color enables ANSI styling in human mode. Ignored in structured mode.
	Color bool

	// Out receives command results. Default: os.Stdout
	Out io.Writer

	// Err receives diagnostics and log lines. Default: os.Stderr
	Err io.Writer

	// Operation supplies the correlation id for lines written while an
	// invocation is in flight.
	Operation *log.Operation
}

// Reporter writes outcomes and diagnostics.
type Reporter struct {
	mode    Mode
	verbose bool
	debug   bool
	color   bool
	out     io.Writer
	errOut  io.Writer
	op      *log.Operation
	logger  *slog.Logger
	styles  styles
}

type styles struct {
	header     lipgloss.Style
	suggestion lipgloss.Style
	cause      lipgloss.Style
	docs       lipgloss.Style
	warn       lipgloss.Style
	info       lipgloss.Style
	debug      lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		suggestion: r.NewStyle().Foreground(lipgloss.Color("214")),
		cause:      r.NewStyle().Foreground(lipgloss.Color("245")),
		docs:       r.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		warn:       r.NewStyle().Foreground(lipgloss.Color("214")),
		info:       r.NewStyle().Foreground(lipgloss.Color("39")),
		debug:      r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// New creates a Reporter.
func New(opts Options) *Reporter {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.Err
	if errOut == nil {
		errOut = os.Stderr
	}
	mode := opts.Mode
	if mode != ModeStructured {
		mode = ModeHuman
	}

	level := "info"
	if opts.Debug {
		level = "debug"
	}
	format := log.FormatText
	if mode == ModeStructured {
		format = log.FormatJSON
	}

	color := opts.Color && mode == ModeHuman

	return &Reporter{
		mode:    mode,
		verbose: opts.Verbose,
		debug:   opts.Debug,
		color:   color,
		out:     out,
		errOut:  errOut,
		op:      opts.Operation,
		logger:  log.New(&log.Config{Level: level, Format: format, Output: errOut}),
		styles:  newStyles(errOut),
	}
}

// Mode returns the reporter's output mode.
func (r *Reporter) Mode() Mode { return r.mode }

// Structured reports whether output is JSON lines.
func (r *Reporter) Structured() bool { return r.mode == ModeStructured }

// Logger returns the underlying logger, tagged with the current
// correlation id when one is set.
func (r *Reporter) Logger() *slog.Logger {
	if id := r.op.ID(); id != "" {
		return r.logger.With(slog.String(log.OperationIDKey, id))
	}
	return r.logger
}

// Debug writes msg only when debug output is enabled.
func (r *Reporter) Debug(msg string, args ...any) {
	if !r.debug {
		return
	}
	if r.Structured() {
		r.Logger().Debug(msg, args...)
		return
	}
	fmt.Fprintln(r.errOut, r.paint(r.styles.debug, "debug: "+msg+formatArgs(args)))
}

// Info writes an informational diagnostic.
func (r *Reporter) Info(msg string, args ...any) {
	if r.Structured() {
		r.Logger().Info(msg, args...)
		return
	}
	fmt.Fprintln(r.errOut, r.paint(r.styles.info, "•")+" "+msg+formatArgs(args))
}

// Warn writes a warning diagnostic.
func (r *Reporter) Warn(msg string, args ...any) {
	if r.Structured() {
		r.Logger().Warn(msg, args...)
		return
	}
	fmt.Fprintln(r.errOut, r.paint(r.styles.warn, "⚠")+" "+msg+formatArgs(args))
}

// Report renders the terminal outcome of a supervised command. result is
// the handler's output; it is printed verbatim in human mode and carried
// as a field in structured mode.
func (r *Reporter) Report(s supervisor.Summary, result string) {
	if r.Structured() {
		r.reportStructured(s, result)
		return
	}

	if s.Err != nil {
		fmt.Fprintln(r.errOut, r.renderHuman(s.Err))
		r.Debug("operation finished", "operation", s.Name, "state", s.State.String(), "operationId", s.OperationID)
		return
	}

	if result != "" {
		fmt.Fprint(r.out, result)
		if !strings.HasSuffix(result, "\n") {
			fmt.Fprintln(r.out)
		}
	}
	r.Debug("operation finished", "operation", s.Name, "state", s.State.String(),
		"durationMs", s.Elapsed.Milliseconds(), "operationId", s.OperationID)
}

// ReportError renders a failure that happened outside a supervised
// command, such as a flag or configuration error.
func (r *Reporter) ReportError(err error) {
	ce := aixerrors.Classify(err)
	if ce == nil {
		return
	}
	r.Report(supervisor.Summary{State: supervisor.StateFailed, Err: ce}, "")
}

func (r *Reporter) reportStructured(s supervisor.Summary, result string) {
	attrs := []any{}
	if s.Name != "" {
		attrs = append(attrs, slog.String(log.OperationKey, s.Name))
	}
	if s.OperationID != "" {
		attrs = append(attrs, slog.String(log.OperationIDKey, s.OperationID))
	}
	attrs = append(attrs, slog.String("state", s.State.String()))
	if s.Elapsed > 0 {
		attrs = append(attrs, log.Duration(s.Elapsed))
	}

	if s.Err == nil {
		if result != "" {
			attrs = append(attrs, resultAttr(result))
		}
		r.logger.Info("operation completed", attrs...)
		return
	}

	rec := aixerrors.ToJSON(s.Err, true)
	attrs = append(attrs,
		slog.String(log.CodeKey, rec.Code),
		slog.String("category", rec.Category),
		slog.Bool("recoverable", rec.Recoverable),
		slog.Int("exitCode", rec.ExitCode),
		slog.String("docs", rec.Docs),
	)
	if rec.Suggestion != "" {
		attrs = append(attrs, slog.String("suggestion", rec.Suggestion))
	}
	if r.verbose && len(rec.Causes) > 0 {
		attrs = append(attrs, slog.Any("causes", rec.Causes))
	}
	if len(rec.Context) > 0 {
		ctx := rec.Context
		if !r.debug {
			delete(ctx, "stack")
		}
		attrs = append(attrs, slog.Any("context", ctx))
	}
	if r.debug {
		attrs = append(attrs, slog.String("stack", rec.Stack))
	}

	r.logger.Error(rec.Message, attrs...)
}

// resultAttr embeds JSON results as objects rather than quoted strings.
func resultAttr(result string) slog.Attr {
	if trimmed := strings.TrimSpace(result); json.Valid([]byte(trimmed)) {
		return slog.Any("result", json.RawMessage(trimmed))
	}
	return slog.String("result", result)
}

// renderHuman styles the canonical Format output line by line.
func (r *Reporter) renderHuman(err *aixerrors.ClassifiedError) string {
	lines := strings.Split(aixerrors.Format(err, r.verbose), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, aixerrors.PrefixSuggestion):
			lines[i] = r.paint(r.styles.suggestion, line)
		case strings.HasPrefix(line, aixerrors.PrefixCause):
			lines[i] = r.paint(r.styles.cause, line)
		case strings.HasPrefix(line, aixerrors.PrefixDocs):
			lines[i] = aixerrors.PrefixDocs + r.paint(r.styles.docs, strings.TrimPrefix(line, aixerrors.PrefixDocs))
		case i == 0:
			lines[i] = r.paint(r.styles.header, line)
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Reporter) paint(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 >= len(args) {
			fmt.Fprintf(&b, "%v", args[i])
			break
		}
		fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
	}
	return b.String()
}

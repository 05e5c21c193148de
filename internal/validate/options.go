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

// Package validate normalizes and bounds command options before any
// handler sees them.
package validate

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Kind is the declared type of a known option.
type Kind int

const (
	KindBool Kind = iota + 1
	KindString
)

// optionKinds declares the expected type for known option keys. Keys not
// listed pass through NormalizeOptionTypes unchanged.
var optionKinds = map[string]Kind{
	"force":      KindBool,
	"dry-run":    KindBool,
	"verbose":    KindBool,
	"json":       KindBool,
	"debug":      KindBool,
	"no-color":   KindBool,
	"prometheus": KindBool,
	"replace":    KindBool,
	"check":      KindBool,
	"preset":     KindString,
	"dir":        KindString,
	"config":     KindString,
	"name":       KindString,
	"keyword":    KindString,
	"rationale":  KindString,
	"context":    KindString,
	"output":     KindString,
	"input":      KindString,
}

// KindOf returns the declared kind for key, or 0 when undeclared.
func KindOf(key string) Kind {
	return optionKinds[key]
}

// NormalizeOptionTypes returns a copy of opts with every declared key
// coerced to its declared kind. It never fails.
func NormalizeOptionTypes(opts map[string]any) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		switch optionKinds[k] {
		case KindBool:
			out[k] = toBool(v)
		case KindString:
			if v == nil {
				out[k] = v
				continue
			}
			out[k] = toString(v)
		default:
			out[k] = v
		}
	}
	return out
}

func toBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return t != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// Options is the validated, immutable option set handed to a handler.
type Options struct {
	values map[string]any
	args   []string
}

// NewOptions builds Options from already validated values.
func NewOptions(values map[string]any, args []string) Options {
	return Options{
		values: maps.Clone(values),
		args:   slices.Clone(args),
	}
}

// Bool returns the boolean option key, false when absent.
func (o Options) Bool(key string) bool {
	b, _ := o.values[key].(bool)
	return b
}

// String returns the string option key, "" when absent.
func (o Options) String(key string) string {
	s, _ := o.values[key].(string)
	return s
}

// Int parses the option key as an integer, returning def when absent or
// not numeric.
func (o Options) Int(key string, def int) int {
	switch t := o.values[key].(type) {
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// Has reports whether key was provided.
func (o Options) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Args returns a copy of the positional arguments.
func (o Options) Args() []string {
	return slices.Clone(o.args)
}

// Arg returns positional argument i, "" when out of range.
func (o Options) Arg(i int) string {
	if i < 0 || i >= len(o.args) {
		return ""
	}
	return o.args[i]
}

// Values returns a copy of all option values.
func (o Options) Values() map[string]any {
	return maps.Clone(o.values)
}

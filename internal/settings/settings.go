// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package settings parses hyperparameters given in the command line, in the form
// "param1=value1;param2=value2;...", into a GoMLX context.Context.
package settings

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/camvid/pkg/support/fsutil"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
)

// FilePrefix marks a setting entry that names a file to read more settings from.
const FilePrefix = "file:"

// Parse the settings, a list of "param=value" separated by ";", and set them in ctx.
//
// All parameters must have a default value set in the root scope of ctx: its type is used to parse the
// value. Integers may use "_" as digits separator (e.g.: 1_000), and lists are separated by ",".
//
// A parameter may be set in a scope, with an absolute path: "/layer_1/l2_regularization=0.1".
//
// An entry "file:<path>" reads the settings from a file, where new lines also separate settings and
// lines starting with "#" are comments.
//
// It returns the paths of the parameters set, in order.
func Parse(ctx *context.Context, settings string) (paramsSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		paramsSet, err = parseSetting(ctx, setting, paramsSet)
		if err != nil {
			return
		}
	}
	return
}

func parseSetting(ctx *context.Context, setting string, paramsSet []string) ([]string, error) {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return paramsSet, nil
	}
	if strings.HasPrefix(setting, FilePrefix) {
		return parseFile(ctx, strings.TrimPrefix(setting, FilePrefix), paramsSet)
	}

	paramPath, valueStr, found := strings.Cut(setting, "=")
	if !found || strings.Contains(valueStr, "=") {
		return paramsSet, errors.Errorf("can't parse setting %q, the format is \"<param>=<value>\"", setting)
	}
	paramScope, paramName := context.SplitScope(paramPath)
	if strings.Contains(paramName, context.ScopeSeparator) {
		return paramsSet, errors.Errorf("can't set parameter %q: its scope must be absolute (start with %q)",
			paramPath, context.ScopeSeparator)
	}
	defaultValue, found := ctx.GetParam(paramName)
	if !found {
		return paramsSet, errors.Errorf("unknown parameter %q (scope=%q): %q has no default value in the root scope",
			paramPath, paramScope, paramName)
	}
	value, err := parseValue(defaultValue, valueStr)
	if err != nil {
		return paramsSet, errors.WithMessagef(err, "failed to parse value %q for parameter %q (default value is %#v)",
			valueStr, paramPath, defaultValue)
	}

	ctxInScope := ctx
	if paramScope != "" {
		ctxInScope = ctx.InAbsPath(paramScope)
	}
	ctxInScope.SetParam(paramName, value)
	return append(paramsSet, paramPath), nil
}

func parseFile(ctx *context.Context, filePath string, paramsSet []string) ([]string, error) {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return paramsSet, err
	}
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return paramsSet, errors.Wrapf(err, "failed to read settings from file %q", filePath)
	}
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, setting := range strings.Split(line, ";") {
			paramsSet, err = parseSetting(ctx, setting, paramsSet)
			if err != nil {
				return paramsSet, errors.WithMessagef(err, "in settings file %q", filePath)
			}
		}
	}
	return paramsSet, nil
}

// parseValue parses valueStr to the same type as defaultValue.
func parseValue(defaultValue any, valueStr string) (any, error) {
	switch defaultValue.(type) {
	case int:
		return parseInt[int](valueStr, strconv.IntSize)
	case int32:
		return parseInt[int32](valueStr, 32)
	case int64:
		return parseInt[int64](valueStr, 64)
	case uint:
		return parseUint[uint](valueStr, strconv.IntSize)
	case uint32:
		return parseUint[uint32](valueStr, 32)
	case uint64:
		return parseUint[uint64](valueStr, 64)
	case float64:
		return strconv.ParseFloat(valueStr, 64)
	case float32:
		v, err := strconv.ParseFloat(valueStr, 32)
		return float32(v), err
	case bool:
		return strconv.ParseBool(valueStr)
	case string:
		return valueStr, nil
	case []string:
		return strings.Split(valueStr, ","), nil
	case []int:
		return parseList(valueStr, func(s string) (int, error) { return parseInt[int](s, strconv.IntSize) })
	case []float64:
		return parseList(valueStr, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	}
	return nil, errors.Errorf("don't know how to parse values of type %T", defaultValue)
}

func parseInt[T int | int32 | int64](valueStr string, bitSize int) (T, error) {
	v, err := strconv.ParseInt(strings.ReplaceAll(valueStr, "_", ""), 10, bitSize)
	return T(v), err
}

func parseUint[T uint | uint32 | uint64](valueStr string, bitSize int) (T, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(valueStr, "_", ""), 10, bitSize)
	return T(v), err
}

func parseList[T any](valueStr string, parse func(string) (T, error)) ([]T, error) {
	if valueStr == "" {
		return []T{}, nil
	}
	parts := strings.Split(valueStr, ",")
	values := make([]T, len(parts))
	for ii, part := range parts {
		var err error
		values[ii], err = parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

// CreateFlag creates a string flag in fs (flag.CommandLine if nil) named flagName ("set" if empty),
// whose usage lists the parameters of ctx and their default values.
//
// It must be called before the flags are parsed, and its value given to Parse afterward.
func CreateFlag(fs *flag.FlagSet, ctx *context.Context, flagName string) *string {
	if fs == nil {
		fs = flag.CommandLine
	}
	if flagName == "" {
		flagName = "set"
	}
	parts := []string{fmt.Sprintf(
		`Set hyperparameters, as a list of "param=value" separated by ";". `+
			`Parameters can be set in a scope using an absolute path with %q as separator. `+
			`An entry "%s<path>" reads the settings from a file, one per line, and lines starting with "#" are comments. `+
			`Available parameters:`,
		context.ScopeSeparator, FilePrefix)}
	ctx.EnumerateParams(func(scope, key string, value any) {
		if scope != context.RootScope {
			return
		}
		parts = append(parts, fmt.Sprintf("%q: default value is %v", key, value))
	})
	slices.Sort(parts[1:])
	return fs.String(flagName, "", strings.Join(parts, "\n"))
}

// Param is a hyperparameter and its value, as listed by List.
type Param struct {
	Path  string
	Value any
}

// List returns all parameters set in ctx, sorted by their path ("/<scope>/<name>").
func List(ctx *context.Context) []Param {
	var params []Param
	ctx.EnumerateParams(func(scope, key string, value any) {
		if scope == context.RootScope {
			scope = ""
		}
		params = append(params, Param{Path: scope + context.ScopeSeparator + key, Value: value})
	})
	slices.SortFunc(params, func(a, b Param) int { return strings.Compare(a.Path, b.Path) })
	return params
}

// Sprint pretty-prints the parameters of ctx, one per line.
func Sprint(ctx *context.Context) string {
	var parts []string
	for _, p := range List(ctx) {
		parts = append(parts, fmt.Sprintf("\t%q: (%T) %v", p.Path, p.Value, p.Value))
	}
	return strings.Join(parts, "\n")
}

// SprintModified pretty-prints only the parameters in paramsSet (as returned by Parse), without duplicates.
func SprintModified(ctx *context.Context, paramsSet []string) string {
	paramsSet = slices.Clone(paramsSet)
	slices.Sort(paramsSet)
	paramsSet = slices.Compact(paramsSet)
	var parts []string
	for _, paramPath := range paramsSet {
		paramScope, paramName := context.SplitScope(paramPath)
		if paramScope == "" {
			paramScope = context.RootScope
		}
		value, found := ctx.InAbsPath(paramScope).GetParam(paramName)
		if !found {
			continue
		}
		parts = append(parts, fmt.Sprintf("\t%q: (%T) %v", paramPath, value, value))
	}
	return strings.Join(parts, "\n")
}

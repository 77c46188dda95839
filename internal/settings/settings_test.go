// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package settings

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestContext() *context.Context {
	ctx := context.New()
	ctx.SetParam("x", 11.0)
	ctx.SetParam("y", 7)
	ctx.SetParam("z", false)
	ctx.SetParam("s", "foo")
	ctx.SetParam("seed", uint64(0))
	ctx.SetParam("list_int", []int{})
	ctx.SetParam("list_float", []float64{})
	ctx.SetParam("list_str", []string{})
	return ctx
}

func TestParse(t *testing.T) {
	ctx := createTestContext()

	paramsSet, err := Parse(ctx, "x=13;/a/z=true;/a/b/y=3;s=bar;seed=1_000;list_int=1,3,7;list_float=0.1,1.2,3e3;list_str=a,b;")
	require.NoError(t, err)
	require.Equal(t, []string{"x", "/a/z", "/a/b/y", "s", "seed", "list_int", "list_float", "list_str"}, paramsSet)
	assert.Equal(t, 13.0, context.GetParamOr(ctx, "x", 0.0))
	assert.Equal(t, uint64(1000), context.GetParamOr(ctx, "seed", uint64(0)))

	assert.Equal(t, 7, context.GetParamOr(ctx, "y", 0))
	assert.Equal(t, 7, context.GetParamOr(ctx.In("a"), "y", 0))
	assert.Equal(t, 3, context.GetParamOr(ctx.In("a").In("b"), "y", 0))

	assert.False(t, context.GetParamOr(ctx, "z", true))
	assert.True(t, context.GetParamOr(ctx.In("a"), "z", false))
	assert.Equal(t, "bar", context.GetParamOr(ctx, "s", ""))

	assert.Equal(t, []int{1, 3, 7}, context.GetParamOr(ctx, "list_int", []int{}))
	assert.Equal(t, []float64{0.1, 1.2, 3e3}, context.GetParamOr(ctx, "list_float", []float64{}))
	assert.Equal(t, []string{"a", "b"}, context.GetParamOr(ctx, "list_str", []string{}))
}

func TestParseErrors(t *testing.T) {
	ctx := createTestContext()

	// Parameter "q" is unknown.
	_, err := Parse(ctx, "q=3")
	require.Error(t, err)

	// Parameter "q" is still unknown in the root scope.
	ctx.In("c").SetParam("q", 13)
	_, err = Parse(ctx, "q=3")
	require.Error(t, err)

	// Wrong type of value.
	_, err = Parse(ctx, "y=3.14")
	require.Error(t, err)
	_, err = Parse(ctx, "list_int=1,a")
	require.Error(t, err)

	// Scope not absolute.
	_, err = Parse(ctx, "a/x=3.14")
	require.Error(t, err)

	// Missing value.
	_, err = Parse(ctx, "x")
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	ctx := createTestContext()
	settingsPath := filepath.Join(t.TempDir(), "settings.txt")
	contents := "# Comment\nx=0.5\n\ny=3;s=from_file\n"
	require.NoError(t, os.WriteFile(settingsPath, []byte(contents), 0644))

	paramsSet, err := Parse(ctx, "z=true;file:"+settingsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x", "y", "s"}, paramsSet)
	assert.Equal(t, 0.5, context.GetParamOr(ctx, "x", 0.0))
	assert.Equal(t, "from_file", context.GetParamOr(ctx, "s", ""))

	_, err = Parse(ctx, "file:"+filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestCreateFlag(t *testing.T) {
	ctx := createTestContext()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	settings := CreateFlag(fs, ctx, "")
	require.NoError(t, fs.Parse([]string{"-set", "y=5"}))
	assert.Equal(t, "y=5", *settings)
	usage := fs.Lookup("set").Usage
	assert.Contains(t, usage, `"list_int": default value is []`)
	assert.Contains(t, usage, `"y": default value is 7`)
}

func TestSprint(t *testing.T) {
	ctx := createTestContext()
	paramsSet, err := Parse(ctx, "y=5;/a/y=8;y=6")
	require.NoError(t, err)

	all := Sprint(ctx)
	assert.Contains(t, all, `"/y": (int) 6`)
	assert.Contains(t, all, `"/a/y": (int) 8`)

	modified := SprintModified(ctx, paramsSet)
	assert.Equal(t, 2, len(strings.Split(modified, "\n")))
	assert.Contains(t, modified, `"y": (int) 6`)
	assert.Contains(t, modified, `"/a/y": (int) 8`)
}

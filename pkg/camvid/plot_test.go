// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlotClassFrequencies(t *testing.T) {
	counts, err := CountClasses(statsFixture(t), 1)
	require.NoError(t, err)

	for _, name := range []string{"freqs.png", "freqs.svg"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, PlotClassFrequencies(counts, path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	err = PlotClassFrequencies(counts, filepath.Join(t.TempDir(), "freqs.unknown"))
	assert.Error(t, err)
}

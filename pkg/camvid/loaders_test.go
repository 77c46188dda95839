// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"io"
	"testing"

	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countExamples yields ds until io.EOF and returns the number of examples seen.
func countExamples(t *testing.T, ds train.Dataset) int {
	t.Helper()
	var count int
	for {
		_, inputs, labels, err := ds.Yield()
		if err == io.EOF {
			return count
		}
		require.NoError(t, err)
		dims := labels[0].Shape().Dimensions
		require.Len(t, dims, 3, "labels must be batched")
		assert.Equal(t, dims[0], inputs[0].Shape().Dimensions[0])
		count += dims[0]
	}
}

func TestNewLoaders(t *testing.T) {
	root := t.TempDir()
	createSplit(t, root, Train, 5, testWidth, testHeight)
	createSplit(t, root, Validation, 3, testWidth, testHeight)
	createSplit(t, root, Test, 2, testWidth, testHeight)

	for _, parallelism := range []int{1, 2} {
		cfg := testConfig(testWidth, testHeight)
		cfg.Parallelism = parallelism
		cfg.TrainBatchSize, cfg.ValidationBatchSize, cfg.TestBatchSize = 2, 2, 1
		cfg.FlipRandomly = true
		trainDS, valDS, testDS, err := NewLoaders(root, cfg)
		require.NoError(t, err, "parallelism=%d", parallelism)
		assert.Equal(t, "train", trainDS.Name())
		assert.Equal(t, "val", valDS.Name())
		assert.Equal(t, "test", testDS.Name())

		assert.Equal(t, 5, countExamples(t, trainDS))
		assert.Equal(t, 3, countExamples(t, valDS))
		assert.Equal(t, 2, countExamples(t, testDS))
		if parallelism == 1 {
			// Not wrapped: the evaluation splits don't use random transformations.
			for _, ds := range []train.Dataset{valDS, testDS} {
				evalCfg := ds.(*Dataset).Pipeline().Config()
				assert.False(t, evalCfg.RandomCrop || evalCfg.FlipRandomly || evalCfg.RandomGamma, ds.Name())
			}
		}

		// A new epoch after Reset.
		trainDS.Reset()
		assert.Equal(t, 5, countExamples(t, trainDS))
	}
}

func TestNewLoadersErrors(t *testing.T) {
	root := t.TempDir()
	createSplit(t, root, Train, 1, testWidth, testHeight)
	createSplit(t, root, Validation, 1, testWidth, testHeight)

	// Missing test split.
	_, _, _, err := NewLoaders(root, testConfig(testWidth, testHeight))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, _, _, err = NewLoaders(root, Config{})
	assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
}

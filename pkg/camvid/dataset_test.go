// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testNumExamples = 5
	testWidth       = 6
	testHeight      = 4
)

func newTestDataset(t *testing.T) *Dataset {
	t.Helper()
	root := t.TempDir()
	createSplit(t, root, Train, testNumExamples, testWidth, testHeight)
	idx, err := NewIndex(root, "train")
	require.NoError(t, err)
	ds, err := NewDataset("train", idx, testConfig(testWidth, testHeight))
	require.NoError(t, err)
	return ds
}

// firstClasses returns the class of the first pixel of each example of the labels tensor, which
// identifies the example in datasets created with createSplit.
func firstClasses(t *testing.T, labels *tensors.Tensor) []int32 {
	flat := tensors.CopyFlatData[int32](labels)
	exampleSize := testWidth * testHeight
	require.Zero(t, len(flat)%exampleSize)
	ids := make([]int32, 0, len(flat)/exampleSize)
	for pos := 0; pos < len(flat); pos += exampleSize {
		ids = append(ids, flat[pos])
	}
	return ids
}

func TestDatasetEpoch(t *testing.T) {
	ds := newTestDataset(t)
	assert.Equal(t, "train", ds.Name())
	assert.Equal(t, "tra", ds.ShortName())

	for range 2 {
		var ids []int32
		for {
			spec, inputs, labels, err := ds.Yield()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			assert.Equal(t, ds, spec)
			require.Len(t, inputs, 1)
			require.Len(t, labels, 1)
			assert.Equal(t, dtypes.Float32, inputs[0].DType())
			assert.Equal(t, []int{testHeight, testWidth, 3}, inputs[0].Shape().Dimensions)
			assert.Equal(t, dtypes.Int32, labels[0].DType())
			assert.Equal(t, []int{testHeight, testWidth}, labels[0].Shape().Dimensions)
			ids = append(ids, firstClasses(t, labels[0])...)
		}
		assert.Equal(t, []int32{0, 1, 2, 3, 4}, ids)

		// Still at the end of the epoch until Reset.
		_, _, _, err := ds.Yield()
		require.Equal(t, io.EOF, err)
		ds.Reset()
	}
}

func TestDatasetShortName(t *testing.T) {
	root := t.TempDir()
	createSplit(t, root, Train, 1, testWidth, testHeight)
	idx, err := NewIndex(root, "train")
	require.NoError(t, err)
	for name, want := range map[string]string{"ab": "ab", "train": "tra", "ñandú": "ñan", "日本語テスト": "日本語"} {
		ds, err := NewDataset(name, idx, testConfig(testWidth, testHeight))
		require.NoError(t, err)
		assert.Equal(t, want, ds.ShortName())
	}
}

func TestDatasetBatches(t *testing.T) {
	ds := newTestDataset(t)

	var batchSizes []int
	ds.BatchSize(2, false)
	for {
		_, inputs, labels, err := ds.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		batchSizes = append(batchSizes, inputs[0].Shape().Dimensions[0])
		assert.Equal(t, []int{inputs[0].Shape().Dimensions[0], testHeight, testWidth, 3}, inputs[0].Shape().Dimensions)
		assert.Equal(t, []int{inputs[0].Shape().Dimensions[0], testHeight, testWidth}, labels[0].Shape().Dimensions)
	}
	assert.Equal(t, []int{2, 2, 1}, batchSizes)

	batchSizes = nil
	ds.BatchSize(2, true)
	for {
		_, inputs, _, err := ds.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		batchSizes = append(batchSizes, inputs[0].Shape().Dimensions[0])
	}
	assert.Equal(t, []int{2, 2}, batchSizes)
}

func TestDatasetShuffleAndInfinite(t *testing.T) {
	ds := newTestDataset(t)
	ds.Shuffle()

	seen := make(map[int32]int)
	for {
		_, _, labels, err := ds.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seen[firstClasses(t, labels[0])[0]]++
	}
	assert.Equal(t, map[int32]int{0: 1, 1: 1, 2: 1, 3: 1, 4: 1}, seen)

	ds.BatchSize(3, true).Infinite(true)
	counts := make(map[int32]int)
	for range 10 {
		_, _, labels, err := ds.Yield()
		require.NoError(t, err)
		for _, id := range firstClasses(t, labels[0]) {
			counts[id]++
		}
	}
	// 30 examples yielded over 6 full epochs: each example exactly 6 times.
	assert.Equal(t, map[int32]int{0: 6, 1: 6, 2: 6, 3: 6, 4: 6}, counts)
}

func TestDatasetConcurrentYield(t *testing.T) {
	ds := newTestDataset(t)
	var mu sync.Mutex
	var ids []int32
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, _, labels, err := ds.Yield()
				if err != nil {
					assert.Equal(t, io.EOF, err)
					return
				}
				mu.Lock()
				ids = append(ids, firstClasses(t, labels[0])...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.ElementsMatch(t, []int32{0, 1, 2, 3, 4}, ids)
}

func TestDatasetEmptyAndErrors(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, Validation, "img001.png", patternClassMap(testWidth, testHeight, 0), true)
	writeExample(t, root, Validation, "img002.png", patternClassMap(testWidth, testHeight, 0), false)
	idx, err := NewIndex(root, "val")
	require.NoError(t, err)
	ds, err := NewDataset("val", idx, testConfig(testWidth, testHeight))
	require.NoError(t, err)

	_, _, _, err = ds.Yield()
	require.NoError(t, err)
	_, _, _, err = ds.Yield()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = NewDataset("val", idx, Config{})
	assert.True(t, errors.Is(err, ErrValidation))

	// An empty index never yields, even if infinite.
	emptyDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(emptyDir, "test"), 0755))
	idx, err = NewIndex(emptyDir, "test")
	require.NoError(t, err)
	ds, err = NewDataset("test", idx, testConfig(testWidth, testHeight))
	require.NoError(t, err)
	ds.Infinite(true)
	_, _, _, err = ds.Yield()
	assert.Equal(t, io.EOF, err)
}

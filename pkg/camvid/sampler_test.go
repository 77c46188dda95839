// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler(t *testing.T) {
	s := newSampler(4, 1)
	s.batchSize = 3
	s.reset()
	indices, err := s.nextIndices()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indices)
	indices, err = s.nextIndices()
	require.NoError(t, err)
	assert.Equal(t, []int{3}, indices)
	_, err = s.nextIndices()
	assert.Equal(t, io.EOF, err)
	assert.True(t, s.batched())

	// Same seed, same shuffled orders.
	s1, s2 := newSampler(10, 7), newSampler(10, 7)
	s1.shuffle, s2.shuffle = true, true
	s1.reset()
	s2.reset()
	for range 10 {
		i1, err := s1.nextIndices()
		require.NoError(t, err)
		i2, err := s2.nextIndices()
		require.NoError(t, err)
		assert.Equal(t, i1, i2)
	}

	// Infinite sampler with batches that cross the epoch boundary.
	s = newSampler(3, 0)
	s.batchSize, s.infinite = 2, true
	s.reset()
	var all []int
	for range 3 {
		indices, err := s.nextIndices()
		require.NoError(t, err)
		all = append(all, indices...)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, all)

	_, err = newSampler(0, 0).nextIndices()
	assert.Equal(t, io.EOF, err)
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"io"
	"math/rand/v2"
	"sync"
)

// sampler selects the example indices of each yield: it holds the epoch cursor, the shuffled order
// and the batching configuration shared by Dataset and CachedDataset.
//
// nextIndices and reset are safe for concurrent use. The configuration fields must be set before
// the dataset is used.
type sampler struct {
	numExamples         int
	batchSize           int
	dropIncompleteBatch bool
	infinite, shuffle   bool

	// mu protects the fields below.
	mu    sync.Mutex
	next  int
	order []int
	rng   *rand.Rand
}

func newSampler(numExamples int, seed uint64) *sampler {
	s := &sampler{numExamples: numExamples, rng: newRand(seed)}
	s.reset()
	return s
}

func (s *sampler) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockedRestart()
}

func (s *sampler) lockedRestart() {
	s.next = 0
	if s.shuffle {
		s.order = s.rng.Perm(s.numExamples)
	} else {
		s.order = nil
	}
}

// nextIndices returns the indices of the examples of the next yield, or io.EOF at the end of the epoch.
// An infinite sampler only returns io.EOF if there are no examples.
func (s *sampler) nextIndices() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.numExamples == 0 {
		return nil, io.EOF
	}
	n := max(s.batchSize, 1)
	indices := make([]int, 0, n)
	for len(indices) < n {
		if s.next >= s.numExamples {
			if !s.infinite {
				break
			}
			s.lockedRestart()
		}
		idx := s.next
		if s.order != nil {
			idx = s.order[idx]
		}
		indices = append(indices, idx)
		s.next++
	}
	if len(indices) == 0 || (s.dropIncompleteBatch && len(indices) < n) {
		return nil, io.EOF
	}
	return indices, nil
}

// batched returns whether the yielded tensors have a batch axis.
func (s *sampler) batched() bool { return s.batchSize > 0 }

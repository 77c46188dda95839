// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// NewLoaders creates the datasets for the train, validation and test splits found under root.
//
// The train dataset uses the random transformations configured in cfg, the validation and test datasets
// use cfg.ForEval(), so they are only scaled to the output size. This differs from the SegNet loaders,
// which apply the same random crop, flip and gamma to all three splits.
//
// All three are shuffled, with per-split batch sizes (see Config). Each one yields one epoch and returns
// io.EOF, and restarts (reshuffled) after a Reset.
//
// If cfg.Parallelism is not 1, the datasets are wrapped with datasets.CustomParallel.
func NewLoaders(root string, cfg Config) (trainDS, validationDS, testDS train.Dataset, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}

	// All splits are indexed before starting any parallel dataset.
	loaders := make([]*Dataset, len(Splits))
	for ii, split := range Splits {
		splitCfg := cfg
		batchSize := cfg.TrainBatchSize
		switch split {
		case Validation:
			splitCfg = cfg.ForEval()
			batchSize = cfg.ValidationBatchSize
		case Test:
			splitCfg = cfg.ForEval()
			batchSize = cfg.TestBatchSize
		}
		if splitCfg.Seed != 0 {
			// Different random sequences for each split.
			splitCfg.Seed += uint64(split)
		}

		var idx *Index
		idx, err = NewIndex(root, split.String())
		if err != nil {
			err = errors.WithMessagef(err, "creating loader for split %q", split)
			return
		}
		loaders[ii], err = NewDataset(split.String(), idx, splitCfg)
		if err != nil {
			return
		}
		loaders[ii].BatchSize(batchSize, false).Shuffle()
		klog.V(1).Infof("camvid: loader %q with %d examples, batch size %d", split, idx.Len(), batchSize)
	}

	wrap := func(ds *Dataset) train.Dataset {
		if cfg.Parallelism == 1 {
			return ds
		}
		return datasets.CustomParallel(ds).
			Parallelism(cfg.Parallelism).
			Buffer(max(cfg.Parallelism, 1)).
			Start()
	}
	trainDS, validationDS, testDS = wrap(loaders[0]), wrap(loaders[1]), wrap(loaders[2])
	return
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"image"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// Dataset implements train.Dataset for one split of CamVid, transforming the images with a Pipeline.
//
// It is safe for concurrent calls to Yield, so it can be wrapped with datasets.Parallel: only the
// selection of the next examples is serialized, the reading and transformation of the images are not.
type Dataset struct {
	name     string
	index    *Index
	pipeline *Pipeline
	sampler  *sampler
}

var (
	AssertDatasetIsTrainDataset *Dataset
	_                           train.Dataset = AssertDatasetIsTrainDataset
)

// NewDataset creates a train.Dataset that yields the examples of the index, transformed according to cfg.
//
// By default, it yields one example at a time (no batch axis), in the order of the index, for one epoch.
// See BatchSize, Shuffle and Infinite to change that.
func NewDataset(name string, index *Index, cfg Config) (*Dataset, error) {
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		name:     name,
		index:    index,
		pipeline: pipeline,
		sampler:  newSampler(index.Len(), cfg.Seed),
	}, nil
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// ShortName implements train.HasShortName, used by datasets.CustomParallel and in metric names.
func (ds *Dataset) ShortName() string {
	runes := []rune(ds.name)
	if len(runes) <= 3 {
		return ds.name
	}
	return string(runes[:3])
}

// Index returns the index of the images yielded by the dataset.
func (ds *Dataset) Index() *Index { return ds.index }

// Pipeline returns the transformations applied to the examples.
func (ds *Dataset) Pipeline() *Pipeline { return ds.pipeline }

// BatchSize configures the dataset to yield batches of n examples, with a leading batch axis. If n is 0,
// examples are yielded one at a time, without a batch axis.
//
// If dropIncompleteBatch is true, a last batch with fewer than n examples is not yielded.
//
// It returns the Dataset, so calls can be cascaded.
func (ds *Dataset) BatchSize(n int, dropIncompleteBatch bool) *Dataset {
	ds.sampler.batchSize = max(n, 0)
	ds.sampler.dropIncompleteBatch = dropIncompleteBatch
	ds.Reset()
	return ds
}

// Shuffle configures the dataset to yield examples in a random order, reshuffled at every epoch.
//
// It returns the Dataset, so calls can be cascaded.
func (ds *Dataset) Shuffle() *Dataset {
	ds.sampler.shuffle = true
	ds.Reset()
	return ds
}

// Infinite configures the dataset to loop over the examples indefinitely, never returning io.EOF
// (except if the index is empty). Use it with train.Loop.RunSteps.
//
// It returns the Dataset, so calls can be cascaded.
func (ds *Dataset) Infinite(infinite bool) *Dataset {
	ds.sampler.infinite = infinite
	ds.Reset()
	return ds
}

// Reset implements train.Dataset. It restarts the epoch, and reshuffles the examples if configured to.
func (ds *Dataset) Reset() { ds.sampler.reset() }

// YieldImages returns the next examples transformed, but not converted to tensors, along with their
// indices in the Index. Useful for visualization.
func (ds *Dataset) YieldImages() (images []*image.NRGBA, labels []*ClassMap, indices []int, err error) {
	indices, err = ds.sampler.nextIndices()
	if err != nil {
		return
	}
	images = make([]*image.NRGBA, len(indices))
	labels = make([]*ClassMap, len(indices))
	for ii, exampleIdx := range indices {
		img, classes, getErr := ds.index.GetClasses(exampleIdx)
		if getErr != nil {
			err = errors.WithMessagef(getErr, "dataset %q failed to read example #%d", ds.name, exampleIdx)
			return
		}
		images[ii], labels[ii], err = ds.pipeline.Transform(img, classes)
		if err != nil {
			err = errors.WithMessagef(err, "dataset %q failed to transform example #%d", ds.name, exampleIdx)
			return
		}
	}
	return
}

// Yield implements train.Dataset. It returns:
//
//   - spec: the *Dataset itself.
//   - inputs: one tensor with the normalized images, shaped `[batch_size, height, width, 3]`, or
//     `[height, width, 3]` if no batch size was configured.
//   - labels: one tensor with the class indices, shaped `[batch_size, height, width]`, or
//     `[height, width]` if no batch size was configured.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	spec = ds
	images, classMaps, _, err := ds.YieldImages()
	if err != nil {
		return
	}
	cfg := ds.pipeline.Config()
	batch := ds.sampler.batched()
	imagesT, err := ImagesToTensor(images, cfg.ImageDType, batch)
	if err != nil {
		return
	}
	labelsT, err := ClassMapsToTensor(classMaps, cfg.LabelDType, batch)
	if err != nil {
		return
	}
	inputs = []*tensors.Tensor{imagesT}
	labels = []*tensors.Tensor{labelsT}
	return
}

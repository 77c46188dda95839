// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/camvid/pkg/support/fsutil"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Cache holds all the examples of a split, scaled to a fixed size but otherwise not transformed,
// in two tensors:
//
//   - Images: uint8 shaped `[num_examples, height, width, 3]`, the RGB values.
//   - Labels: uint8 shaped `[num_examples, height, width]`, the class indices.
//
// The rows follow the order of the Index the cache was built from.
type Cache struct {
	Split          Split
	Height, Width  int
	Images, Labels *tensors.Tensor
}

// NumExamples in the cache.
func (c *Cache) NumExamples() int {
	return c.Images.Shape().Dimensions[0]
}

// cachePaths returns the paths of the images and labels cache files.
func cachePaths(cacheDir string, split Split, height, width int) (imagesPath, labelsPath string) {
	imagesPath = filepath.Join(cacheDir, fmt.Sprintf("camvid_%s_images_%dx%d.tensor", split, height, width))
	labelsPath = filepath.Join(cacheDir, fmt.Sprintf("camvid_%s_labels_%dx%d.tensor", split, height, width))
	return
}

// LoadOrBuildCache loads the cache of the split of idx, scaled to height x width, from cacheDir.
//
// If the cache files don't exist, or if they don't match the number of examples of the index, the cache
// is built (displaying a progress bar) and saved to cacheDir.
func LoadOrBuildCache(idx *Index, cacheDir string, height, width int) (*Cache, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.Wrapf(ErrValidation, "invalid cache size %dx%d", width, height)
	}
	cacheDir, err := fsutil.ReplaceTildeInDir(cacheDir)
	if err != nil {
		return nil, err
	}
	imagesPath, labelsPath := cachePaths(cacheDir, idx.Split(), height, width)
	cache := &Cache{Split: idx.Split(), Height: height, Width: width}

	imagesExist, err := fsutil.FileExists(imagesPath)
	if err != nil {
		return nil, err
	}
	labelsExist, err := fsutil.FileExists(labelsPath)
	if err != nil {
		return nil, err
	}
	if imagesExist && labelsExist {
		cache.Images, err = tensors.Load(imagesPath)
		if err != nil {
			return nil, errors.WithMessagef(err, "attempting to read cache file %q", imagesPath)
		}
		cache.Labels, err = tensors.Load(labelsPath)
		if err != nil {
			return nil, errors.WithMessagef(err, "attempting to read cache file %q", labelsPath)
		}
		numExamples := idx.Len()
		if cache.Images.Shape().Check(dtypes.Uint8, numExamples, height, width, 3) == nil &&
			cache.Labels.Shape().Check(dtypes.Uint8, numExamples, height, width) == nil {
			klog.V(1).Infof("camvid: loaded cache of split %q: images %s (%s), labels %s (%s)", idx.Split(),
				cache.Images.Shape(), humanize.Bytes(uint64(cache.Images.Shape().Memory())),
				cache.Labels.Shape(), humanize.Bytes(uint64(cache.Labels.Shape().Memory())))
			return cache, nil
		}
		klog.Warningf("camvid: cache files %q and %q don't match split %q with %d examples, rebuilding",
			imagesPath, labelsPath, idx.Split(), numExamples)
	}

	if err = cache.build(idx); err != nil {
		return nil, err
	}
	if err = os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating cache directory %q", cacheDir)
	}
	if err = cache.Images.Save(imagesPath); err != nil {
		_ = os.Remove(imagesPath)
		return nil, errors.WithMessagef(err, "attempting to write cache file %q", imagesPath)
	}
	if err = cache.Labels.Save(labelsPath); err != nil {
		// The images file alone would be an incomplete cache.
		_ = os.Remove(imagesPath)
		return nil, errors.WithMessagef(err, "attempting to write cache file %q", labelsPath)
	}
	klog.Infof("camvid: saved cache of split %q to %q: %s", idx.Split(), cacheDir,
		humanize.Bytes(uint64(cache.Images.Shape().Memory()+cache.Labels.Shape().Memory())))
	return cache, nil
}

// build reads and scales all examples of idx, in parallel.
func (c *Cache) build(idx *Index) error {
	cfg := DefaultConfig().ForEval()
	cfg.Height, cfg.Width = c.Height, c.Width
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return err
	}

	numExamples := idx.Len()
	imageSize := c.Height * c.Width * 3
	labelSize := c.Height * c.Width
	c.Images = tensors.FromShape(shapes.Make(dtypes.Uint8, numExamples, c.Height, c.Width, 3))
	c.Labels = tensors.FromShape(shapes.Make(dtypes.Uint8, numExamples, c.Height, c.Width))
	tensors.MutableFlatData[uint8](c.Images, func(flatImages []uint8) {
		tensors.MutableFlatData[uint8](c.Labels, func(flatLabels []uint8) {
			pbar := progressbar.Default(int64(numExamples), fmt.Sprintf("Caching %s images", idx.Split()))
			err = forEachSample(idx, 0, func(exampleIdx int) error {
				img, classes, err := idx.GetClasses(exampleIdx)
				if err != nil {
					return err
				}
				scaled, scaledClasses, err := pipeline.Transform(img, classes)
				if err != nil {
					return errors.WithMessagef(err, "scaling example #%d", exampleIdx)
				}
				pos := exampleIdx * imageSize
				for y := range c.Height {
					row := scaled.Pix[y*scaled.Stride:]
					for x := range c.Width {
						copy(flatImages[pos:pos+3], row[4*x:4*x+3])
						pos += 3
					}
				}
				copy(flatLabels[exampleIdx*labelSize:], scaledClasses.Pix)
				_ = pbar.Add(1)
				return nil
			})
			_ = pbar.Finish()
		})
	})
	return err
}

// Example returns the image and class map of example i of the cache, which must be in range.
func (c *Cache) Example(i int) (img *image.NRGBA, classes *ClassMap) {
	img = image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	classes = NewClassMap(c.Width, c.Height)
	imageSize := c.Height * c.Width * 3
	labelSize := c.Height * c.Width
	tensors.ConstFlatData[uint8](c.Images, func(flat []uint8) {
		flat = flat[i*imageSize : (i+1)*imageSize]
		for pixel := range labelSize {
			copy(img.Pix[4*pixel:4*pixel+3], flat[3*pixel:3*pixel+3])
			img.Pix[4*pixel+3] = 255
		}
	})
	tensors.ConstFlatData[uint8](c.Labels, func(flat []uint8) {
		copy(classes.Pix, flat[i*labelSize:(i+1)*labelSize])
	})
	return
}

// CachedDataset implements train.Dataset yielding the examples of a Cache.
//
// Only the random horizontal flip (Config.FlipRandomly) is applied, since the examples are already scaled.
// The images are normalized and converted to Config.ImageDType, and the labels to Config.LabelDType,
// just like Dataset. It is safe for concurrent use.
type CachedDataset struct {
	name     string
	cache    *Cache
	pipeline *Pipeline
	sampler  *sampler
}

var _ train.Dataset = &CachedDataset{}

// NewCachedDataset creates a dataset that yields the examples of the cache. Only the flip and the dtypes
// of cfg are used.
func NewCachedDataset(name string, cache *Cache, cfg Config) (*CachedDataset, error) {
	flip := cfg.FlipRandomly
	cfg = cfg.ForEval()
	cfg.FlipRandomly = flip
	cfg.Height, cfg.Width = cache.Height, cache.Width
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return &CachedDataset{
		name:     name,
		cache:    cache,
		pipeline: pipeline,
		sampler:  newSampler(cache.NumExamples(), cfg.Seed),
	}, nil
}

// Name implements train.Dataset.
func (ds *CachedDataset) Name() string { return ds.name }

// BatchSize configures the dataset to yield batches of n examples. See Dataset.BatchSize.
func (ds *CachedDataset) BatchSize(n int, dropIncompleteBatch bool) *CachedDataset {
	ds.sampler.batchSize = max(n, 0)
	ds.sampler.dropIncompleteBatch = dropIncompleteBatch
	ds.Reset()
	return ds
}

// Shuffle configures the dataset to yield examples in a random order, reshuffled at every epoch.
func (ds *CachedDataset) Shuffle() *CachedDataset {
	ds.sampler.shuffle = true
	ds.Reset()
	return ds
}

// Infinite configures the dataset to loop over the examples indefinitely.
func (ds *CachedDataset) Infinite(infinite bool) *CachedDataset {
	ds.sampler.infinite = infinite
	ds.Reset()
	return ds
}

// Reset implements train.Dataset.
func (ds *CachedDataset) Reset() { ds.sampler.reset() }

// Yield implements train.Dataset, with the same inputs and labels as Dataset.Yield.
func (ds *CachedDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	spec = ds
	indices, err := ds.sampler.nextIndices()
	if err != nil {
		return
	}
	images := make([]*image.NRGBA, len(indices))
	classMaps := make([]*ClassMap, len(indices))
	for ii, exampleIdx := range indices {
		img, classes := ds.cache.Example(exampleIdx)
		images[ii], classMaps[ii], err = ds.pipeline.Transform(img, classes)
		if err != nil {
			return
		}
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

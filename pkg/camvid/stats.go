// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"io"
	"math"
	"runtime"
	"slices"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// ClassCounts holds the pixel counts per class of a split, used to derive class weights for
// class-balanced losses.
type ClassCounts struct {
	// NumImages counted.
	NumImages int

	// Pixels is the number of pixels labeled with each class.
	Pixels [NumClasses]int64

	// ImagePixels is the total number of pixels of the images where each class is present.
	ImagePixels [NumClasses]int64
}

// Frequencies returns, for each class, the number of pixels of the class divided by the number
// of pixels of the images where the class is present. It is 0 for classes never present.
func (cc *ClassCounts) Frequencies() []float64 {
	freqs := make([]float64, NumClasses)
	for c := range NumClasses {
		if cc.ImagePixels[c] > 0 {
			freqs[c] = float64(cc.Pixels[c]) / float64(cc.ImagePixels[c])
		}
	}
	return freqs
}

// MedianFrequencyWeights returns the class weights by median frequency balancing, as in the SegNet paper:
// the weight of class c is `median(freqs) / freqs[c]`, where the median is taken over the classes present.
//
// Void and classes never present get weight 0.
func (cc *ClassCounts) MedianFrequencyWeights() []float64 {
	freqs := cc.Frequencies()
	present := make([]float64, 0, NumClasses)
	for c, f := range freqs {
		if Class(c) != Void && f > 0 {
			present = append(present, f)
		}
	}
	weights := make([]float64, NumClasses)
	if len(present) == 0 {
		return weights
	}
	med := median(present)
	for c, f := range freqs {
		if Class(c) != Void && f > 0 {
			weights[c] = med / f
		}
	}
	return weights
}

// median of values, which must not be empty. values is not modified.
func median[T constraints.Float](values []T) T {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// DataFrame returns the counts as a table with one row per class, and the columns "class", "pixels",
// "image_pixels", "frequency" and "weight" (see MedianFrequencyWeights).
func (cc *ClassCounts) DataFrame() dataframe.DataFrame {
	pixels := make([]int, NumClasses)
	imagePixels := make([]int, NumClasses)
	for c := range NumClasses {
		pixels[c] = int(cc.Pixels[c])
		imagePixels[c] = int(cc.ImagePixels[c])
	}
	return dataframe.New(
		series.New(ClassNames(), series.String, "class"),
		series.New(pixels, series.Int, "pixels"),
		series.New(imagePixels, series.Int, "image_pixels"),
		series.New(cc.Frequencies(), series.Float, "frequency"),
		series.New(cc.MedianFrequencyWeights(), series.Float, "weight"),
	)
}

// WriteCSV writes DataFrame as CSV, with a header.
func (cc *ClassCounts) WriteCSV(w io.Writer) error {
	df := cc.DataFrame()
	if df.Err != nil {
		return errors.Wrap(df.Err, "building class counts table")
	}
	return errors.Wrap(df.WriteCSV(w), "writing class counts CSV")
}

// forEachSample calls fn for every sample index of idx, with at most parallelism concurrent calls
// (0 means the number of cores). It returns the first error.
func forEachSample(idx *Index, parallelism int, fn func(i int) error) error {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i := range idx.Len() {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}

// CountClasses reads all labels of the index and counts the pixels per class.
// Up to parallelism labels are decoded concurrently, 0 means the number of cores.
func CountClasses(idx *Index, parallelism int) (*ClassCounts, error) {
	counts := &ClassCounts{NumImages: idx.Len()}
	var mu sync.Mutex
	err := forEachSample(idx, parallelism, func(i int) error {
		sample, err := idx.Sample(i)
		if err != nil {
			return err
		}
		label, err := LoadImage(sample.LabelPath)
		if err != nil {
			return err
		}
		classes, err := Decode(label)
		if err != nil {
			return errors.WithMessagef(err, "decoding label %q", sample.LabelPath)
		}
		var local [NumClasses]int64
		for _, v := range classes.Pix {
			local[v]++
		}
		numPixels := int64(len(classes.Pix))

		mu.Lock()
		defer mu.Unlock()
		for c, n := range local {
			if n > 0 {
				counts.Pixels[c] += n
				counts.ImagePixels[c] += numPixels
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("camvid: counted classes of %d labels of split %q", counts.NumImages, idx.Split())
	return counts, nil
}

// ChannelStats computes the per-channel (R, G, B) mean and standard deviation of the images of the index,
// with values scaled to [0, 1]. Compare with Mean and Std.
//
// Up to parallelism images are read concurrently, 0 means the number of cores.
func ChannelStats(idx *Index, parallelism int) (mean, std [3]float64, err error) {
	var (
		mu          sync.Mutex
		sum, sumSq  [3]float64
		totalPixels int64
	)
	err = forEachSample(idx, parallelism, func(i int) error {
		sample, err := idx.Sample(i)
		if err != nil {
			return err
		}
		img, err := LoadImage(sample.ImagePath)
		if err != nil {
			return err
		}
		nrgba := imaging.Clone(img)
		var localSum, localSumSq [3]float64
		for pos := 0; pos < len(nrgba.Pix); pos += 4 {
			for channel := range 3 {
				v := float64(nrgba.Pix[pos+channel]) / 255.0
				localSum[channel] += v
				localSumSq[channel] += v * v
			}
		}

		mu.Lock()
		defer mu.Unlock()
		for channel := range 3 {
			sum[channel] += localSum[channel]
			sumSq[channel] += localSumSq[channel]
		}
		totalPixels += int64(len(nrgba.Pix) / 4)
		return nil
	})
	if err != nil {
		return
	}
	if totalPixels == 0 {
		err = errors.Wrapf(ErrValidation, "no pixels to compute statistics of split %q", idx.Split())
		return
	}
	n := float64(totalPixels)
	for channel := range 3 {
		mean[channel] = sum[channel] / n
		variance := sumSq[channel]/n - mean[channel]*mean[channel]
		std[channel] = math.Sqrt(max(variance, 0))
	}
	return
}

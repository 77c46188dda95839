// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package camvid provides a dataset adapter for the CamVid (Cambridge-driving Labeled Video
// Database) semantic segmentation dataset, in the 11 classes (+ Void) version used by SegNet,
// and a `train.Dataset` implementation that can be used to train models with GoMLX
// (http://github.com/gomlx/gomlx/).
//
// The dataset is expected to be laid out as in https://github.com/alexgkendall/SegNet-Tutorial/tree/master/CamVid:
//
//	<root>/train/*.png      <root>/trainannot/*.png
//	<root>/val/*.png        <root>/valannot/*.png
//	<root>/test/*.png       <root>/testannot/*.png
//
// Where the annotation images are single channel images whose pixel values are the class indices (see Class).
//
// Usage example:
//
//	idx, err := camvid.NewIndex("~/work/camvid", "train")
//	if err != nil { ... }
//	ds, err := camvid.NewDataset("train", idx, camvid.DefaultConfig())
//	if err != nil { ... }
//	trainDS := datasets.Parallel(ds.BatchSize(8, true).Shuffle().Infinite(true))
//
// Or, to create the datasets for all splits from the hyperparameters in a context.Context, see NewLoaders.
package camvid

import (
	"image/color"
	"slices"
)

// This file contains the constant tables of the dataset: class names, colors, weights and image statistics.

// Class is a semantic class of CamVid. Its value is the index stored in the annotation images.
type Class uint8

const (
	Sky Class = iota
	Building
	ColumnPole
	Road
	Sidewalk
	Tree
	SignSymbol
	Fence
	Car
	Pedestrian
	Bicyclist

	// Void marks unlabeled pixels. Its weight is 0, so it is excluded from the loss.
	Void
)

// NumClasses is the number of classes, including Void.
const NumClasses = 12

var (
	classNames = [NumClasses]string{
		"Sky",
		"Building",
		"Column-Pole",
		"Road",
		"Sidewalk",
		"Tree",
		"Sign-Symbol",
		"Fence",
		"Car",
		"Pedestrian",
		"Bicyclist",
		"Void",
	}

	// classWeights from median frequency balancing, as used in the SegNet paper
	// (https://arxiv.org/pdf/1511.00561.pdf). They can be regenerated with ClassCounts.MedianFrequencyWeights.
	classWeights = [NumClasses]float64{
		0.58872014284134,
		0.51052379608154,
		2.6966278553009,
		0.45021694898605,
		1.1785038709641,
		0.77028578519821,
		2.4782588481903,
		2.5273461341858,
		1.0122526884079,
		3.2375309467316,
		4.1312313079834,
		0,
	}

	classColors = [NumClasses]color.RGBA{
		{R: 128, G: 128, B: 128, A: 255},
		{R: 128, G: 0, B: 0, A: 255},
		{R: 192, G: 192, B: 128, A: 255},
		{R: 128, G: 64, B: 128, A: 255},
		{R: 0, G: 0, B: 192, A: 255},
		{R: 128, G: 128, B: 0, A: 255},
		{R: 192, G: 128, B: 128, A: 255},
		{R: 64, G: 64, B: 128, A: 255},
		{R: 64, G: 0, B: 128, A: 255},
		{R: 64, G: 64, B: 0, A: 255},
		{R: 0, G: 128, B: 192, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
	}

	datasetMean = [3]float64{0.41189489566336, 0.4251328133025, 0.4326707089857}
	datasetStd  = [3]float64{0.27413549931506, 0.28506257482912, 0.28284674400252}
)

// IsValid returns whether c is one of the NumClasses classes.
func (c Class) IsValid() bool { return int(c) < NumClasses }

// String returns the class name, or "Unknown".
func (c Class) String() string {
	if !c.IsValid() {
		return "Unknown"
	}
	return classNames[c]
}

// Color used to visualize the class. Void is black.
func (c Class) Color() color.RGBA {
	if !c.IsValid() {
		return color.RGBA{A: 255}
	}
	return classColors[c]
}

// Weight of the class for a class-balanced loss. It is 0 for Void and for invalid classes.
func (c Class) Weight() float64 {
	if !c.IsValid() {
		return 0
	}
	return classWeights[c]
}

// ClassNames returns a copy of the names of the NumClasses classes, in index order.
func ClassNames() []string { return slices.Clone(classNames[:]) }

// ClassWeights returns a copy of the per-class loss weights, in index order. The last one (Void) is 0.
func ClassWeights() []float64 { return slices.Clone(classWeights[:]) }

// Palette returns a copy of the colors of the classes, in index order.
func Palette() []color.RGBA { return slices.Clone(classColors[:]) }

// Mean returns the per-channel (R, G, B) mean of the dataset images, with values in [0, 1].
func Mean() [3]float64 { return datasetMean }

// Std returns the per-channel (R, G, B) standard deviation of the dataset images, with values in [0, 1].
func Std() [3]float64 { return datasetStd }

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"image"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// This file converts transformed images and class maps to tensors.

// imageValueType are the Go types of the normalized image tensors.
type imageValueType interface {
	float32 | float64 | float16.Float16
}

// ImagesToTensor converts the images to a tensor of the given float dtype, with the values scaled to [0, 1]
// and then normalized with the dataset Mean and Std, per channel. Alpha is dropped.
//
// If batch is true, the tensor is shaped `[len(images), height, width, 3]`, otherwise exactly one
// image must be given and the tensor is shaped `[height, width, 3]`. All images must have the same size.
func ImagesToTensor(images []*image.NRGBA, dtype dtypes.DType, batch bool) (t *tensors.Tensor, err error) {
	if len(images) == 0 || (!batch && len(images) != 1) {
		return nil, errors.Wrapf(ErrValidation, "ImagesToTensor given %d images (batch=%v)", len(images), batch)
	}
	size := images[0].Bounds().Size()
	for ii, img := range images {
		if !img.Bounds().Size().Eq(size) {
			return nil, errors.Wrapf(ErrValidation, "image[%d] has size %s, but image[0] has size %s -- they must all be the same",
				ii, img.Bounds().Size(), size)
		}
	}
	err = exceptions.TryCatch[error](func() {
		switch dtype {
		case dtypes.Float32:
			t = imagesToTensorImpl(images, batch, func(v float64) float32 { return float32(v) })
		case dtypes.Float64:
			t = imagesToTensorImpl(images, batch, func(v float64) float64 { return v })
		case dtypes.Float16:
			t = imagesToTensorImpl(images, batch, func(v float64) float16.Float16 { return float16.Fromfloat32(float32(v)) })
		default:
			exceptions.Panicf("image tensors of dtype %s not supported, use Float32, Float64 or Float16", dtype)
		}
	})
	if err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}
	return t, nil
}

func imagesToTensorImpl[T imageValueType](images []*image.NRGBA, batch bool, convert func(v float64) T) *tensors.Tensor {
	size := images[0].Bounds().Size()
	dtype := dtypes.FromGenericsType[T]()
	var t *tensors.Tensor
	if batch {
		t = tensors.FromShape(shapes.Make(dtype, len(images), size.Y, size.X, 3))
	} else {
		t = tensors.FromShape(shapes.Make(dtype, size.Y, size.X, 3))
	}

	// Lookup table from the byte value of each channel to the normalized value.
	var lookup [3][256]T
	for channel := range 3 {
		for v := range 256 {
			lookup[channel][v] = convert((float64(v)/255.0 - datasetMean[channel]) / datasetStd[channel])
		}
	}

	tensors.MutableFlatData[T](t, func(flat []T) {
		pos := 0
		for _, img := range images {
			for y := 0; y < size.Y; y++ {
				row := img.Pix[y*img.Stride : y*img.Stride+4*size.X]
				for x := 0; x < size.X; x++ {
					for channel := range 3 {
						flat[pos] = lookup[channel][row[4*x+channel]]
						pos++
					}
				}
			}
		}
	})
	return t
}

// ClassMapsToTensor converts the class maps to a tensor of the given integer dtype.
//
// If batch is true, the tensor is shaped `[len(maps), height, width]`, otherwise exactly one map must be
// given and the tensor is shaped `[height, width]`. All maps must have the same size.
func ClassMapsToTensor(maps []*ClassMap, dtype dtypes.DType, batch bool) (*tensors.Tensor, error) {
	if len(maps) == 0 || (!batch && len(maps) != 1) {
		return nil, errors.Wrapf(ErrValidation, "ClassMapsToTensor given %d class maps (batch=%v)", len(maps), batch)
	}
	for ii, m := range maps {
		if m.Width != maps[0].Width || m.Height != maps[0].Height {
			return nil, errors.Wrapf(ErrValidation, "class map[%d] is %dx%d, but class map[0] is %dx%d",
				ii, m.Width, m.Height, maps[0].Width, maps[0].Height)
		}
	}
	if !batch {
		return maps[0].ToTensor(dtype)
	}
	switch dtype {
	case dtypes.Int8:
		return batchClassesToTensor[int8](maps), nil
	case dtypes.Int16:
		return batchClassesToTensor[int16](maps), nil
	case dtypes.Int32:
		return batchClassesToTensor[int32](maps), nil
	case dtypes.Int64:
		return batchClassesToTensor[int64](maps), nil
	case dtypes.Uint8:
		return batchClassesToTensor[uint8](maps), nil
	case dtypes.Uint16:
		return batchClassesToTensor[uint16](maps), nil
	case dtypes.Uint32:
		return batchClassesToTensor[uint32](maps), nil
	case dtypes.Uint64:
		return batchClassesToTensor[uint64](maps), nil
	}
	return nil, errors.Wrapf(ErrValidation, "labels can't be converted to dtype %s, an integer dtype is required", dtype)
}

func batchClassesToTensor[T classIndexType](maps []*ClassMap) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.FromGenericsType[T](), len(maps), maps[0].Height, maps[0].Width))
	tensors.MutableFlatData[T](t, func(flat []T) {
		pos := 0
		for _, m := range maps {
			for _, v := range m.Pix {
				flat[pos] = T(v)
				pos++
			}
		}
	})
	return t
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// ClassMap holds the class index of each pixel of an image, in row-major order.
type ClassMap struct {
	Width, Height int

	// Pix holds Width*Height class indices, row by row.
	Pix []uint8
}

// NewClassMap returns a ClassMap of the given size, with all pixels set to Sky (0).
func NewClassMap(width, height int) *ClassMap {
	return &ClassMap{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the class of the pixel at (x, y).
func (m *ClassMap) At(x, y int) Class { return Class(m.Pix[y*m.Width+x]) }

// Set the class of the pixel at (x, y).
func (m *ClassMap) Set(x, y int, c Class) { m.Pix[y*m.Width+x] = uint8(c) }

// ToImage returns the class indices as a single channel image, the same layout as the annotation files.
// The image doesn't share the pixels with the ClassMap.
func (m *ClassMap) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(img.Pix, m.Pix)
	return img
}

// classIndexType are the Go types a ClassMap can be converted to in a tensor.
type classIndexType interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// ToTensor converts the class indices to a tensor shaped `[height, width]`.
// The dtype must be an integer type.
func (m *ClassMap) ToTensor(dtype dtypes.DType) (*tensors.Tensor, error) {
	switch dtype {
	case dtypes.Int8:
		return classesToTensor[int8](m), nil
	case dtypes.Int16:
		return classesToTensor[int16](m), nil
	case dtypes.Int32:
		return classesToTensor[int32](m), nil
	case dtypes.Int64:
		return classesToTensor[int64](m), nil
	case dtypes.Uint8:
		return classesToTensor[uint8](m), nil
	case dtypes.Uint16:
		return classesToTensor[uint16](m), nil
	case dtypes.Uint32:
		return classesToTensor[uint32](m), nil
	case dtypes.Uint64:
		return classesToTensor[uint64](m), nil
	}
	return nil, errors.Wrapf(ErrValidation, "labels can't be converted to dtype %s, an integer dtype is required", dtype)
}

func classesToTensor[T classIndexType](m *ClassMap) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dtypes.FromGenericsType[T](), m.Height, m.Width))
	tensors.MutableFlatData[T](t, func(flat []T) {
		for ii, v := range m.Pix {
			flat[ii] = T(v)
		}
	})
	return t
}

// Decode converts an annotation image to a ClassMap.
//
// The annotation must be a single channel (*image.Gray) or indexed color (*image.Paletted) image, whose
// raw pixel values are already the class indices: no color lookup is done. Any other layout, or a value
// outside the classes, returns an error wrapping ErrFormat.
//
// Notice this is not the inverse of Encode, which produces colors for visualization: see ColorsToClasses
// for that.
func Decode(img image.Image) (*ClassMap, error) {
	var pix []uint8
	var stride int
	switch typed := img.(type) {
	case *image.Gray:
		pix, stride = typed.Pix, typed.Stride
	case *image.Paletted:
		pix, stride = typed.Pix, typed.Stride
	default:
		return nil, errors.Wrapf(ErrFormat, "label image of type %T, only single channel images (*image.Gray or "+
			"*image.Paletted) with class indices are supported", img)
	}
	bounds := img.Bounds()
	m := NewClassMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		copy(m.Pix[y*m.Width:(y+1)*m.Width], pix[y*stride:y*stride+m.Width])
	}
	if err := m.checkClasses(ErrFormat); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeBytes converts the raw pixels of a single channel label image, one byte per pixel in row-major
// order, to a ClassMap. It returns an error wrapping ErrFormat if the length of pix doesn't match
// width*height, or if any value is not a valid class.
func DecodeBytes(pix []byte, width, height int) (*ClassMap, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, errors.Wrapf(ErrFormat, "label with %d bytes doesn't match a single channel %dx%d image",
			len(pix), width, height)
	}
	m := NewClassMap(width, height)
	copy(m.Pix, pix)
	if err := m.checkClasses(ErrFormat); err != nil {
		return nil, err
	}
	return m, nil
}

// checkClasses returns an error wrapping kind if any pixel holds an invalid class.
func (m *ClassMap) checkClasses(kind error) error {
	if len(m.Pix) != m.Width*m.Height {
		return errors.Wrapf(kind, "class map %dx%d with %d pixels", m.Width, m.Height, len(m.Pix))
	}
	for ii, v := range m.Pix {
		if int(v) >= NumClasses {
			return errors.Wrapf(kind, "pixel (%d, %d) has class index %d, but there are only %d classes",
				ii%m.Width, ii/m.Width, v, NumClasses)
		}
	}
	return nil
}

// paintMasked calls paint with every pixel index of m that holds each class, one class at a time.
// It returns an error wrapping ErrValidation if any pixel holds an invalid class.
func paintMasked(m *ClassMap, paint func(c Class, pixelIdx int)) error {
	if err := m.checkClasses(ErrValidation); err != nil {
		return err
	}
	mask := make([]bool, len(m.Pix))
	for c := range Class(NumClasses) {
		for ii, v := range m.Pix {
			mask[ii] = v == uint8(c)
		}
		for ii, selected := range mask {
			if selected {
				paint(c, ii)
			}
		}
	}
	return nil
}

// Encode the ClassMap as an RGB image (alpha is always opaque), using the color of each class (see Palette).
//
// It returns an error wrapping ErrValidation if any class index is outside the palette.
func Encode(m *ClassMap) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	err := paintMasked(m, func(c Class, pixelIdx int) {
		rgba := classColors[c]
		pos := (pixelIdx/m.Width)*img.Stride + (pixelIdx%m.Width)*4
		img.Pix[pos] = rgba.R
		img.Pix[pos+1] = rgba.G
		img.Pix[pos+2] = rgba.B
		img.Pix[pos+3] = 255
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// EncodeGray is like Encode, but outputs a single channel image, with the luminance of each class color.
func EncodeGray(m *ClassMap) (*image.Gray, error) {
	var levels [NumClasses]uint8
	for c, rgba := range classColors {
		levels[c] = color.GrayModel.Convert(rgba).(color.Gray).Y
	}
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	err := paintMasked(m, func(c Class, pixelIdx int) {
		img.Pix[(pixelIdx/m.Width)*img.Stride+pixelIdx%m.Width] = levels[c]
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

type rgbKey [3]uint8

var colorToClass = func() map[rgbKey]Class {
	lookup := make(map[rgbKey]Class, NumClasses)
	for c, rgba := range classColors {
		lookup[rgbKey{rgba.R, rgba.G, rgba.B}] = Class(c)
	}
	return lookup
}()

// ColorsToClasses converts an image colored with the class palette (e.g. the output of Encode) back
// to a ClassMap. It returns an error wrapping ErrFormat for colors not in the palette.
//
// Alpha is ignored for *image.NRGBA images, whose colors are stored non-premultiplied. Other images are
// converted through color.NRGBAModel, so fully transparent pixels of premultiplied images (e.g. *image.RGBA)
// have lost their color and read as black, that is, Void.
func ColorsToClasses(img image.Image) (*ClassMap, error) {
	bounds := img.Bounds()
	m := NewClassMap(bounds.Dx(), bounds.Dy())
	nrgbaImg, isNRGBA := img.(*image.NRGBA)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			var key rgbKey
			if isNRGBA {
				pos := nrgbaImg.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				key = rgbKey{nrgbaImg.Pix[pos], nrgbaImg.Pix[pos+1], nrgbaImg.Pix[pos+2]}
			} else {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				key = rgbKey{c.R, c.G, c.B}
			}
			c, found := colorToClass[key]
			if !found {
				return nil, errors.Wrapf(ErrFormat, "pixel (%d, %d) has color %s, which is not in the palette",
					x, y, fmt.Sprintf("#%02x%02x%02x", key[0], key[1], key[2]))
			}
			m.Set(x, y, c)
		}
	}
	return m, nil
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"image"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Pipeline applies the transformations configured in a Config to pairs of image and class map.
//
// The random choices (crop window, flip, gamma) are shared between the image and its label.
// It is safe for concurrent use.
type Pipeline struct {
	cfg Config

	muRng sync.Mutex
	rng   *rand.Rand
}

// NewPipeline creates a Pipeline for the given configuration.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, rng: newRand(cfg.Seed)}, nil
}

// newRand creates a random number generator from seed, or from the current time if seed is 0.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Config returns the configuration of the pipeline.
func (p *Pipeline) Config() Config { return p.cfg }

// augmentation holds the random choices for one example.
type augmentation struct {
	crop  image.Rectangle
	flip  bool
	gamma float64
}

// sampleAugmentation draws the random transformations for an image of the given bounds.
func (p *Pipeline) sampleAugmentation(bounds image.Rectangle) (aug augmentation) {
	p.muRng.Lock()
	defer p.muRng.Unlock()

	aug.crop = bounds
	aug.gamma = 1.0
	if p.cfg.RandomCrop {
		ratio := p.cfg.CropMinRatio + p.rng.Float64()*(p.cfg.CropMaxRatio-p.cfg.CropMinRatio)
		width := max(1, int(math.Round(ratio*float64(bounds.Dx()))))
		height := max(1, int(math.Round(ratio*float64(bounds.Dy()))))
		x0 := bounds.Min.X + p.rng.IntN(bounds.Dx()-width+1)
		y0 := bounds.Min.Y + p.rng.IntN(bounds.Dy()-height+1)
		aug.crop = image.Rect(x0, y0, x0+width, y0+height)
	}
	if p.cfg.FlipRandomly {
		aug.flip = p.rng.IntN(2) == 1
	}
	if p.cfg.RandomGamma {
		aug.gamma = p.cfg.GammaMin + p.rng.Float64()*(p.cfg.GammaMax-p.cfg.GammaMin)
	}
	return
}

// Transform applies the geometric transformations (crop, scale and flip) to both the image and the class
// map, and the gamma correction to the image.
//
// The image is scaled with a cubic (Catmull-Rom) filter, and the labels with nearest-neighbor, so no new
// classes are created.
func (p *Pipeline) Transform(img image.Image, classes *ClassMap) (*image.NRGBA, *ClassMap, error) {
	bounds := img.Bounds()
	if bounds.Dx() != classes.Width || bounds.Dy() != classes.Height {
		return nil, nil, errors.Wrapf(ErrValidation, "image is %dx%d but its label is %dx%d",
			bounds.Dx(), bounds.Dy(), classes.Width, classes.Height)
	}
	if bounds.Empty() {
		return nil, nil, errors.Wrapf(ErrValidation, "empty image")
	}
	aug := p.sampleAugmentation(bounds)

	// Image.
	var out *image.NRGBA
	if aug.crop != bounds {
		out = imaging.Crop(img, aug.crop)
	} else {
		out = imaging.Clone(img)
	}
	if out.Bounds().Dx() != p.cfg.Width || out.Bounds().Dy() != p.cfg.Height {
		out = imaging.Resize(out, p.cfg.Width, p.cfg.Height, imaging.CatmullRom)
	}
	if aug.flip {
		out = imaging.FlipH(out)
	}
	if aug.gamma != 1.0 {
		// imaging corrects with the inverse of gamma: out = in^(1/gamma).
		out = imaging.AdjustGamma(out, 1.0/aug.gamma)
	}

	// Labels, shifted to the image bounds' origin.
	labelImg := classes.ToImage()
	labelCrop := aug.crop.Sub(bounds.Min)
	var labels *image.NRGBA
	if labelCrop != labelImg.Bounds() {
		labels = imaging.Crop(labelImg, labelCrop)
	} else {
		labels = imaging.Clone(labelImg)
	}
	if labels.Bounds().Dx() != p.cfg.Width || labels.Bounds().Dy() != p.cfg.Height {
		labels = imaging.Resize(labels, p.cfg.Width, p.cfg.Height, imaging.NearestNeighbor)
	}
	if aug.flip {
		labels = imaging.FlipH(labels)
	}
	return out, classMapFromNRGBA(labels), nil
}

// classMapFromNRGBA takes the class indices back from the gray levels of a label image converted by imaging.
func classMapFromNRGBA(img *image.NRGBA) *ClassMap {
	bounds := img.Bounds()
	m := NewClassMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < m.Width; x++ {
			m.Pix[y*m.Width+x] = row[4*x]
		}
	}
	return m
}

// Apply transforms the image and class map (see Transform) and converts them to tensors with the
// configured dtypes: the image shaped `[height, width, 3]` and normalized with Mean and Std,
// the labels shaped `[height, width]`.
func (p *Pipeline) Apply(img image.Image, classes *ClassMap) (imageT, labelsT *tensors.Tensor, err error) {
	out, labels, err := p.Transform(img, classes)
	if err != nil {
		return nil, nil, err
	}
	imageT, err = ImagesToTensor([]*image.NRGBA{out}, p.cfg.ImageDType, false)
	if err != nil {
		return nil, nil, err
	}
	labelsT, err = labels.ToTensor(p.cfg.LabelDType)
	if err != nil {
		return nil, nil, err
	}
	return imageT, labelsT, nil
}

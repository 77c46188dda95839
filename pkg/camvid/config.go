// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Config of the transformations and loading of the dataset.
//
// The defaults (see DefaultConfig) reproduce the SegNet training setup: random crops between 60% and
// 100% of the image, scaled back to 360x480, random horizontal flips and random gamma correction.
type Config struct {
	// Height, Width of the images and labels yielded.
	Height, Width int

	// RandomCrop enables cropping a random window with a size ratio in [CropMinRatio, CropMaxRatio] of
	// the original image, preserving the aspect ratio. The same window is used for the image and the label.
	RandomCrop                 bool
	CropMinRatio, CropMaxRatio float64

	// FlipRandomly flips horizontally both the image and the label, half of the time.
	FlipRandomly bool

	// RandomGamma enables a random gamma correction, with gamma uniformly sampled from [GammaMin, GammaMax],
	// applied to the image only.
	RandomGamma        bool
	GammaMin, GammaMax float64

	// ImageDType of the image tensors: Float32, Float64 or Float16.
	ImageDType dtypes.DType

	// LabelDType of the label tensors: an integer dtype.
	LabelDType dtypes.DType

	// Batch sizes used by NewLoaders. A batch size of 0 yields one example at a time, without a batch axis.
	TrainBatchSize, ValidationBatchSize, TestBatchSize int

	// Parallelism used by NewLoaders to wrap the datasets with datasets.CustomParallel. 0 means the number
	// of cores available, and 1 disables parallelization.
	Parallelism int

	// Seed for the random transformations and shuffling. 0 means a random seed.
	Seed uint64
}

// DefaultConfig returns the configuration used for training in the SegNet paper.
func DefaultConfig() Config {
	return Config{
		Height:              360,
		Width:               480,
		RandomCrop:          true,
		CropMinRatio:        0.6,
		CropMaxRatio:        1.0,
		FlipRandomly:        true,
		RandomGamma:         true,
		GammaMin:            0.5,
		GammaMax:            2.0,
		ImageDType:          dtypes.Float32,
		LabelDType:          dtypes.Int32,
		TrainBatchSize:      1,
		ValidationBatchSize: 1,
		TestBatchSize:       1,
		Parallelism:         0,
	}
}

// ForEval returns a copy of the configuration with all random transformations disabled.
func (cfg Config) ForEval() Config {
	cfg.RandomCrop = false
	cfg.FlipRandomly = false
	cfg.RandomGamma = false
	return cfg
}

// Validate returns an error wrapping ErrValidation if the configuration is not usable.
func (cfg Config) Validate() error {
	if cfg.Height <= 0 || cfg.Width <= 0 {
		return errors.Wrapf(ErrValidation, "invalid output size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.RandomCrop && (cfg.CropMinRatio <= 0 || cfg.CropMaxRatio > 1 || cfg.CropMinRatio > cfg.CropMaxRatio) {
		return errors.Wrapf(ErrValidation, "crop ratio range [%g, %g] must be within (0, 1]",
			cfg.CropMinRatio, cfg.CropMaxRatio)
	}
	if cfg.RandomGamma && (cfg.GammaMin <= 0 || cfg.GammaMin > cfg.GammaMax) {
		return errors.Wrapf(ErrValidation, "gamma range [%g, %g] must be positive", cfg.GammaMin, cfg.GammaMax)
	}
	switch cfg.ImageDType {
	case dtypes.Float32, dtypes.Float64, dtypes.Float16:
	default:
		return errors.Wrapf(ErrValidation, "image dtype %s not supported, use Float32, Float64 or Float16", cfg.ImageDType)
	}
	if !cfg.LabelDType.IsInt() {
		return errors.Wrapf(ErrValidation, "label dtype %s not supported, an integer dtype is required", cfg.LabelDType)
	}
	if cfg.TrainBatchSize < 0 || cfg.ValidationBatchSize < 0 || cfg.TestBatchSize < 0 {
		return errors.Wrapf(ErrValidation, "negative batch size")
	}
	return nil
}

// Hyperparameters names used in a context.Context, see CreateDefaultContext and ConfigFromContext.
const (
	ParamHeight              = "camvid_height"
	ParamWidth               = "camvid_width"
	ParamRandomCrop          = "camvid_random_crop"
	ParamCropMinRatio        = "camvid_crop_min_ratio"
	ParamCropMaxRatio        = "camvid_crop_max_ratio"
	ParamFlipRandomly        = "camvid_flip"
	ParamRandomGamma         = "camvid_random_gamma"
	ParamGammaMin            = "camvid_gamma_min"
	ParamGammaMax            = "camvid_gamma_max"
	ParamImageDType          = "camvid_image_dtype"
	ParamLabelDType          = "camvid_label_dtype"
	ParamTrainBatchSize      = "batch_size"
	ParamValidationBatchSize = "eval_batch_size"
	ParamTestBatchSize       = "test_batch_size"
	ParamParallelism         = "camvid_parallelism"
	ParamSeed                = "camvid_seed"
)

var dtypeNames = map[string]dtypes.DType{
	"float16": dtypes.Float16,
	"float32": dtypes.Float32,
	"float64": dtypes.Float64,
	"int8":    dtypes.Int8,
	"int16":   dtypes.Int16,
	"int32":   dtypes.Int32,
	"int64":   dtypes.Int64,
	"uint8":   dtypes.Uint8,
	"uint16":  dtypes.Uint16,
	"uint32":  dtypes.Uint32,
	"uint64":  dtypes.Uint64,
}

func dtypeName(dtype dtypes.DType) string {
	for name, dt := range dtypeNames {
		if dt == dtype {
			return name
		}
	}
	return strings.ToLower(dtype.String())
}

// CreateDefaultContext returns a context.Context with the hyperparameters of DefaultConfig set.
// They can be changed with the "-set" flag of the command line, and read back with ConfigFromContext.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	SetContextParams(ctx, DefaultConfig())
	return ctx
}

// SetContextParams sets the hyperparameters of ctx from cfg.
func SetContextParams(ctx *context.Context, cfg Config) {
	ctx.SetParams(map[string]any{
		ParamHeight:              cfg.Height,
		ParamWidth:               cfg.Width,
		ParamRandomCrop:          cfg.RandomCrop,
		ParamCropMinRatio:        cfg.CropMinRatio,
		ParamCropMaxRatio:        cfg.CropMaxRatio,
		ParamFlipRandomly:        cfg.FlipRandomly,
		ParamRandomGamma:         cfg.RandomGamma,
		ParamGammaMin:            cfg.GammaMin,
		ParamGammaMax:            cfg.GammaMax,
		ParamImageDType:          dtypeName(cfg.ImageDType),
		ParamLabelDType:          dtypeName(cfg.LabelDType),
		ParamTrainBatchSize:      cfg.TrainBatchSize,
		ParamValidationBatchSize: cfg.ValidationBatchSize,
		ParamTestBatchSize:       cfg.TestBatchSize,
		ParamParallelism:         cfg.Parallelism,
		ParamSeed:                int(cfg.Seed),
	})
}

// ConfigFromContext builds a Config from the hyperparameters in ctx. Missing parameters take the
// values of DefaultConfig.
func ConfigFromContext(ctx *context.Context) (cfg Config, err error) {
	cfg = DefaultConfig()
	var imageDType, labelDType string
	err = exceptions.TryCatch[error](func() {
		cfg.Height = context.GetParamOr(ctx, ParamHeight, cfg.Height)
		cfg.Width = context.GetParamOr(ctx, ParamWidth, cfg.Width)
		cfg.RandomCrop = context.GetParamOr(ctx, ParamRandomCrop, cfg.RandomCrop)
		cfg.CropMinRatio = context.GetParamOr(ctx, ParamCropMinRatio, cfg.CropMinRatio)
		cfg.CropMaxRatio = context.GetParamOr(ctx, ParamCropMaxRatio, cfg.CropMaxRatio)
		cfg.FlipRandomly = context.GetParamOr(ctx, ParamFlipRandomly, cfg.FlipRandomly)
		cfg.RandomGamma = context.GetParamOr(ctx, ParamRandomGamma, cfg.RandomGamma)
		cfg.GammaMin = context.GetParamOr(ctx, ParamGammaMin, cfg.GammaMin)
		cfg.GammaMax = context.GetParamOr(ctx, ParamGammaMax, cfg.GammaMax)
		cfg.TrainBatchSize = context.GetParamOr(ctx, ParamTrainBatchSize, cfg.TrainBatchSize)
		cfg.ValidationBatchSize = context.GetParamOr(ctx, ParamValidationBatchSize, cfg.ValidationBatchSize)
		cfg.TestBatchSize = context.GetParamOr(ctx, ParamTestBatchSize, cfg.TestBatchSize)
		cfg.Parallelism = context.GetParamOr(ctx, ParamParallelism, cfg.Parallelism)
		cfg.Seed = uint64(context.GetParamOr(ctx, ParamSeed, int(cfg.Seed)))
		imageDType = context.GetParamOr(ctx, ParamImageDType, dtypeName(cfg.ImageDType))
		labelDType = context.GetParamOr(ctx, ParamLabelDType, dtypeName(cfg.LabelDType))
	})
	if err != nil {
		return cfg, errors.Wrap(ErrValidation, err.Error())
	}

	for _, p := range []struct {
		param, name string
		dtype       *dtypes.DType
	}{{ParamImageDType, imageDType, &cfg.ImageDType}, {ParamLabelDType, labelDType, &cfg.LabelDType}} {
		dtype, found := dtypeNames[strings.ToLower(p.name)]
		if !found {
			return cfg, errors.Wrapf(ErrValidation, "unknown dtype %q for hyperparameter %q", p.name, p.param)
		}
		*p.dtype = dtype
	}
	return cfg, cfg.Validate()
}

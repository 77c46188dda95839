// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"image"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gomlx/camvid/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	// Extra decoders, so all fsutil.ImageExtensions can be read.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DownloadURL where the dataset can be manually downloaded from.
const DownloadURL = "https://github.com/alexgkendall/SegNet-Tutorial/tree/master/CamVid"

// Download is not supported: it always returns an error wrapping ErrUnsupported.
// Please download the dataset manually from DownloadURL into baseDir.
func Download(baseDir string) error {
	return errors.Wrapf(ErrUnsupported, "download of CamVid to %q not implemented, please download it manually from %s",
		baseDir, DownloadURL)
}

// Sample is a pair of image and label file paths. It is a value, and never changes once created.
type Sample struct {
	ImagePath, LabelPath string
}

// Index of the images of one split of the dataset.
//
// It is immutable after creation, so it is safe to use from multiple goroutines.
type Index struct {
	root  string
	split Split
	paths []string
}

// NewIndex lists all images under `<root>/<split>/`, recursively.
//
// The split name is normalized with ParseSplit. The root may start with "~", which is replaced by the
// user's home directory.
//
// The order of the images is deterministic: see fsutil.ListImages. An empty split directory results
// in an empty Index, but a missing one returns an error wrapping ErrNotFound.
func NewIndex(root, splitName string) (*Index, error) {
	split, err := ParseSplit(splitName)
	if err != nil {
		return nil, err
	}
	root, err = fsutil.ReplaceTildeInDir(root)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, split.String())
	paths, err := fsutil.ListImages(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "split directory %q: %v", dir, err)
		}
		return nil, err
	}
	klog.V(1).Infof("camvid: %d images found in %q", len(paths), dir)
	return &Index{root: root, split: split, paths: paths}, nil
}

// Root directory of the dataset.
func (idx *Index) Root() string { return idx.root }

// Split indexed.
func (idx *Index) Split() Split { return idx.split }

// Len returns the number of samples.
func (idx *Index) Len() int { return len(idx.paths) }

// Sample returns the image and label paths of the sample at position i.
func (idx *Index) Sample(i int) (Sample, error) {
	if i < 0 || i >= len(idx.paths) {
		return Sample{}, errors.Wrapf(ErrIndex, "sample %d requested, but split %q has %d samples",
			i, idx.split, len(idx.paths))
	}
	imagePath := idx.paths[i]
	labelPath, err := LabelPath(idx.root, idx.split, imagePath)
	if err != nil {
		return Sample{}, err
	}
	return Sample{ImagePath: imagePath, LabelPath: labelPath}, nil
}

// Get loads the image at position i and its label image.
//
// It fails with an error wrapping ErrNotFound if the label file doesn't exist. Either both
// images are returned, or an error.
func (idx *Index) Get(i int) (img, label image.Image, err error) {
	sample, err := idx.Sample(i)
	if err != nil {
		return nil, nil, err
	}
	exists, err := fsutil.FileExists(sample.LabelPath)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, errors.Wrapf(ErrNotFound, "label %q for image %q", sample.LabelPath, sample.ImagePath)
	}
	img, err = LoadImage(sample.ImagePath)
	if err != nil {
		return nil, nil, err
	}
	label, err = LoadImage(sample.LabelPath)
	if err != nil {
		return nil, nil, err
	}
	return img, label, nil
}

// GetClasses is like Get, but decodes the label image into a ClassMap (see Decode).
func (idx *Index) GetClasses(i int) (img image.Image, classes *ClassMap, err error) {
	img, label, err := idx.Get(i)
	if err != nil {
		return nil, nil, err
	}
	classes, err = Decode(label)
	if err != nil {
		sample, _ := idx.Sample(i)
		return nil, nil, errors.WithMessagef(err, "decoding label %q", sample.LabelPath)
	}
	return img, classes, nil
}

// LabelPath returns the path of the label image paired with imagePath: the `<split>` directory
// under root is replaced by `<split>annot`, and the rest of the path is kept.
//
// It returns an error wrapping ErrNotFound if imagePath is not under `<root>/<split>`.
func LabelPath(root string, split Split, imagePath string) (string, error) {
	splitDir := filepath.Join(root, split.String())
	rel, err := filepath.Rel(splitDir, imagePath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrNotFound, "image %q is not under the split directory %q", imagePath, splitDir)
	}
	return filepath.Join(root, split.AnnotationDir(), rel), nil
}

// LoadImage reads and decodes the image file, keeping its native color model (labels are usually
// *image.Gray or *image.Paletted).
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "image %q: %v", path, err)
		}
		return nil, errors.Wrapf(err, "failed to read image %q", path)
	}
	return img, nil
}

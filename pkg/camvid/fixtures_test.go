// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// patternClassMap returns a class map where pixel (x, y) has class (x+y+offset) % NumClasses.
func patternClassMap(width, height, offset int) *ClassMap {
	m := NewClassMap(width, height)
	for y := range height {
		for x := range width {
			m.Set(x, y, Class((x+y+offset)%NumClasses))
		}
	}
	return m
}

// uniformClassMap returns a class map with all pixels set to c.
func uniformClassMap(width, height int, c Class) *ClassMap {
	m := NewClassMap(width, height)
	for ii := range m.Pix {
		m.Pix[ii] = uint8(c)
	}
	return m
}

// colorImage returns an image painted with the colors of the classes.
func colorImage(classes *ClassMap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, classes.Width, classes.Height))
	for y := range classes.Height {
		for x := range classes.Width {
			img.SetNRGBA(x, y, toNRGBA(classes.At(x, y)))
		}
	}
	return img
}

func toNRGBA(c Class) color.NRGBA {
	rgba := c.Color()
	return color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: 255}
}

// writeExample saves an image painted with the class colors to `<root>/<split>/<rel>` and its label
// to `<root>/<split>annot/<rel>`. If withLabel is false, only the image is written.
func writeExample(t *testing.T, root string, split Split, rel string, classes *ClassMap, withLabel bool) {
	t.Helper()
	imagePath := filepath.Join(root, split.String(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(imagePath), 0755))
	require.NoError(t, imaging.Save(colorImage(classes), imagePath))
	if !withLabel {
		return
	}
	labelPath := filepath.Join(root, split.AnnotationDir(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(labelPath), 0755))
	require.NoError(t, imaging.Save(classes.ToImage(), labelPath))
}

// createSplit writes numExamples images of width x height into the split: example i is named
// "img%03d.png" and uses patternClassMap with offset i.
func createSplit(t *testing.T, root string, split Split, numExamples, width, height int) {
	t.Helper()
	for i := range numExamples {
		writeExample(t, root, split, fmt.Sprintf("img%03d.png", i), patternClassMap(width, height, i), true)
	}
}

// testConfig returns a configuration without random transformations, keeping the size of the fixtures.
func testConfig(width, height int) Config {
	cfg := DefaultConfig().ForEval()
	cfg.Width, cfg.Height = width, height
	cfg.Parallelism = 1
	cfg.Seed = 42
	return cfg
}

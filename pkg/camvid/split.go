// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Split is a partition of the dataset.
type Split uint8

const (
	Train Split = iota
	Validation
	Test
)

// Splits lists all splits, in order.
var Splits = []Split{Train, Validation, Test}

// splitSynonyms maps accepted split names to their canonical value.
var splitSynonyms = map[string]Split{
	"train":      Train,
	"training":   Train,
	"val":        Validation,
	"validate":   Validation,
	"validation": Validation,
	"test":       Test,
	"testing":    Test,
}

// ParseSplit normalizes a split name. It accepts "train", "training", "val", "validate",
// "validation", "test" and "testing". Anything else returns an error wrapping ErrValidation.
func ParseSplit(name string) (Split, error) {
	split, found := splitSynonyms[name]
	if !found {
		names := make([]string, 0, len(splitSynonyms))
		for synonym := range splitSynonyms {
			names = append(names, synonym)
		}
		slices.Sort(names)
		return 0, errors.Wrapf(ErrValidation, "split %q must be one of {%s}", name, strings.Join(names, ", "))
	}
	return split, nil
}

// String returns the name of the split's directory: "train", "val" or "test".
func (s Split) String() string {
	switch s {
	case Train:
		return "train"
	case Validation:
		return "val"
	case Test:
		return "test"
	}
	return "unknown"
}

// AnnotationDir returns the name of the directory holding the labels of the split, e.g. "trainannot".
func (s Split) AnnotationDir() string {
	return s.String() + "annot"
}

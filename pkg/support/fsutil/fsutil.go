// Package fsutil contains utilities for working with the file system: checking for files,
// expanding "~" in directories and listing image files in a deterministic order.
package fsutil

import (
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// ImageExtensions lists the (lower-case) file extensions recognized as images.
//
// Each of them has a registered decoder: jpeg, png and gif from the standard library, bmp, tiff
// and webp from golang.org/x/image.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsImageFile returns whether the file name has one of the ImageExtensions, case-insensitive.
func IsImageFile(name string) bool {
	return slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(name)))
}

// FileExists returns whether the file or directory exists or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to FileExists(%q)", path)
}

// ReplaceTildeInDir by the user's home directory. Returns dir if it doesn't start with "~".
//
// It returns an error if `dir` has an unknown user (e.g: `~unknown/...`).
func ReplaceTildeInDir(dir string) (string, error) {
	if len(dir) == 0 || dir[0] != '~' {
		return dir, nil
	}
	var userName string
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		sepIdx := strings.IndexRune(dir, '/')
		if sepIdx == -1 {
			userName = dir[1:]
		} else {
			userName = dir[1:sepIdx]
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", dir)
	}
	return filepath.Join(usr.HomeDir, dir[1+len(userName):]), nil
}

// ListImages walks dir recursively and returns the paths of all image files (see IsImageFile).
//
// The order is deterministic: directories are visited in lexicographic order of their path, and
// within each directory files are sorted by name. So all files of "a/" come before the files
// of "a/b/", regardless of their names.
//
// An empty directory yields an empty (nil) list. If dir doesn't exist, the returned error
// satisfies errors.Is(err, fs.ErrNotExist).
func ListImages(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list images in %q", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("failed to list images in %q: not a directory", dir)
	}

	perDir := make(map[string][]string)
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			return nil
		}
		parent := filepath.Dir(path)
		perDir[parent] = append(perDir[parent], entry.Name())
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed while walking %q", dir)
	}

	dirs := make([]string, 0, len(perDir))
	for d := range perDir {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	var paths []string
	for _, d := range dirs {
		names := perDir[d]
		slices.Sort(names)
		for _, name := range names {
			paths = append(paths, filepath.Join(d, name))
		}
	}
	return paths, nil
}

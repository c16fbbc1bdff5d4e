// Package util - Loading input images from disk.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-wildlife/images"
	"github.com/pkg/errors"
)

// framePrefix marks sequentially numbered frame dumps, e.g. frame-12.jpg.
const framePrefix = "frame-"

// LoadImageFile reads one image file.
//
// Arguments:
//   - path: Path to the image file.
//
// Returns:
//   - *images.Image: The encoded image with its path and format.
//   - error: An *images.ImageLoadError if the file cannot be read.
func LoadImageFile(path string) (*images.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &images.ImageLoadError{Path: path, Reason: "read failed", Err: err}
	}
	return images.NewImage(path, data), nil
}

// LoadDirectoryImageFiles reads all supported image files from a directory,
// without descending into subdirectories.
//
// Files named frame-<n>.<ext> sort numerically by n and come first; every
// other file follows in lexical order. Annotated copies written by earlier
// runs (<base>_detected.<ext>) are skipped.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []*images.Image: One entry per image file.
// - error: Error if the directory or any file cannot be read.
func LoadDirectoryImageFiles(dir string) ([]*images.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading directory %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !images.IsSupportedExtension(filepath.Ext(entry.Name())) {
			continue
		}
		if images.IsAnnotatedPath(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.SliceStable(names, func(i, j int) bool {
		fi, iok := frameNumber(names[i])
		fj, jok := frameNumber(names[j])
		switch {
		case iok && jok:
			return fi < fj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})

	out := make([]*images.Image, 0, len(names))
	for _, name := range names {
		img, err := LoadImageFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// LoadPaths loads every file argument and expands every directory argument,
// keeping argument order.
func LoadPaths(paths []string) ([]*images.Image, error) {
	var out []*images.Image
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &images.ImageLoadError{Path: p, Reason: "stat failed", Err: err}
		}
		if info.IsDir() {
			imgs, err := LoadDirectoryImageFiles(p)
			if err != nil {
				return nil, err
			}
			out = append(out, imgs...)
			continue
		}
		img, err := LoadImageFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func frameNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, framePrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, framePrefix), filepath.Ext(name)))
	if err != nil {
		return 0, false
	}
	return n, true
}

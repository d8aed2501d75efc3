package services

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/errs"
)

var pageExtensions = []string{".jpg", ".jpeg", ".png"}

// PageFileName returns the on-disk name of the page at index: the index as a
// four digit zero-padded decimal followed by ext.
func PageFileName(index int, ext string) string {
	return fmt.Sprintf("%04d%s", index, ext)
}

// ParsePageIndex extracts the page index from a file name such as "0007.jpg".
// Leading zeros are stripped; a stem made only of zeros is index 0.
func ParsePageIndex(name string) (int, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	digits := strings.TrimLeft(stem, "0")
	if digits == "" {
		if stem == "" {
			return 0, errs.Wrap(errs.ErrSequencing, fmt.Sprintf("parse page index %q", name), nil)
		}
		return 0, nil
	}

	index, err := strconv.ParseUint(digits, 10, 31)
	if err != nil {
		return 0, errs.Wrap(errs.ErrSequencing, fmt.Sprintf("parse page index %q", name), err)
	}
	return int(index), nil
}

// ScanPages lists the page images in dir. Names in exclude (cover, archive)
// and hidden or temporary files are skipped. The result is not ordered.
func ScanPages(dir string, exclude ...string) ([]data.PageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrFilesystem, "scan "+dir, err)
	}

	var pages []data.PageFile
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || slices.Contains(exclude, name) {
			continue
		}
		if !slices.Contains(pageExtensions, strings.ToLower(filepath.Ext(name))) {
			continue
		}

		index, err := ParsePageIndex(name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, data.PageFile{Index: index, Path: filepath.Join(dir, name)})
	}
	return pages, nil
}

// Sequence orders pages by their numeric index. Two files claiming the same
// index (0001.jpg and 0001.png, say) cannot be ordered and are rejected.
func Sequence(pages []data.PageFile) ([]data.PageFile, error) {
	ordered := slices.Clone(pages)
	slices.SortStableFunc(ordered, func(a, b data.PageFile) int {
		return a.Index - b.Index
	})

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Index == ordered[i-1].Index {
			return nil, errs.Wrap(errs.ErrSequencing,
				fmt.Sprintf("duplicate page index %d: %s and %s",
					ordered[i].Index, filepath.Base(ordered[i-1].Path), filepath.Base(ordered[i].Path)), nil)
		}
	}
	return ordered, nil
}

// selectPages keeps the pages the descriptor expects, in order, and fails
// when one of them is not on disk.
func selectPages(ordered []data.PageFile, expected []data.PageRef) ([]data.PageFile, error) {
	byIndex := make(map[int]data.PageFile, len(ordered))
	for _, p := range ordered {
		byIndex[p.Index] = p
	}

	selected := make([]data.PageFile, 0, len(expected))
	for _, ref := range expected {
		page, ok := byIndex[ref.Index]
		if !ok {
			return nil, errs.Wrap(errs.ErrSequencing, fmt.Sprintf("page %d missing after download", ref.Index), nil)
		}
		selected = append(selected, page)
	}
	return selected, nil
}

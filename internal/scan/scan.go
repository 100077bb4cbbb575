// Package scan enumerates the work items of a batch: the files in the input
// directory whose extension the converter understands.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Slynchy/webp-conv/internal/domain"
)

// Recognized input extensions (lowercase, with leading dot).
var inputExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// Recognized reports whether the file name carries a convertible extension.
// The check is case-insensitive.
func Recognized(name string) bool {
	return inputExtensions[strings.ToLower(filepath.Ext(name))]
}

// DestName returns the output file name for an input file. The new extension
// is appended to the full original name ("a.png" -> "a.png.webp") so two
// inputs differing only in extension never collide in the output directory.
func DestName(name string) string {
	return name + ".webp"
}

// Enumerate lists inputDir (non-recursive) and returns a WorkItem for every
// recognized entry, in directory order. An empty directory yields an empty,
// non-nil slice; a missing or unreadable directory is an error.
func Enumerate(inputDir, outputDir string) ([]domain.WorkItem, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	items := make([]domain.WorkItem, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Recognized(e.Name()) {
			continue
		}
		items = append(items, domain.WorkItem{
			Name:       e.Name(),
			SourcePath: filepath.Join(inputDir, e.Name()),
			DestPath:   filepath.Join(outputDir, DestName(e.Name())),
		})
	}
	return items, nil
}

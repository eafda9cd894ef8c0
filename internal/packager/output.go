package packager

import (
	"path/filepath"
)

// EPUBExt is appended to the root directory name to derive the output name.
const EPUBExt = ".epub"

// OutputName resolves the archive path for a run.
//
// A non-empty explicit name is used verbatim. Otherwise the root directory path, without
// a trailing separator, gets the .epub suffix, so the archive lands next to
// the directory ("book/" becomes "book.epub"). When dir is set the derived
// base name is placed in dir instead.
func OutputName(root, explicit, dir string) string {
	if explicit != "" {
		return explicit
	}

	base := filepath.Clean(root)
	switch filepath.Base(base) {
	case ".", "..", string(filepath.Separator):
		// "." has no usable name of its own.
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}

	if dir != "" {
		return filepath.Join(dir, filepath.Base(base)+EPUBExt)
	}
	return base + EPUBExt
}

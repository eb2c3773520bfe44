package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ListSegments returns the absolute paths of the files in dir named
// <prefix>_<NNN>.<ext>, ordered by numeric index. Other entries are ignored.
// An empty prefix means "part". Nothing matching yields an empty slice.
func ListSegments(dir, prefix string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("list segments: directory is required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\d{3,})\.[A-Za-z0-9]+$`)

	type indexed struct {
		name string
		idx  int
	}
	var matched []indexed
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		matched = append(matched, indexed{name: entry.Name(), idx: idx})
	}

	slices.SortFunc(matched, func(a, b indexed) int {
		if a.idx != b.idx {
			return a.idx - b.idx
		}
		return strings.Compare(a.name, b.name)
	})

	paths := make([]string, 0, len(matched))
	for _, m := range matched {
		paths = append(paths, filepath.Join(absDir, m.name))
	}
	return paths, nil
}

// FilterExt keeps the paths whose extension equals ext, case-insensitively.
func FilterExt(paths []string, ext string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ext) {
			out = append(out, p)
		}
	}
	return out
}

package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDir loads every manifest file (*.yaml, *.yml) directly under dir,
// in lexicographic order, and returns the concatenated declarations.
// A missing directory yields no declarations rather than an error so
// that a fresh checkout behaves like an empty manifest set.
func LoadDir(dir string) ([]Declaration, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := filepath.Ext(name)
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	var decls []Declaration
	for _, p := range paths {
		mf, err := Load(p)
		if err != nil {
			return nil, err
		}
		decls = append(decls, mf.Plugins...)
	}
	return decls, nil
}

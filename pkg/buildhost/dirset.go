package buildhost

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DirSet is an ordered set of absolute directory paths.
// The zero value is ready to use.
type DirSet struct {
	dirs  []string
	index map[string]struct{}
}

// Add registers dir. Registering the same directory again is a no-op.
func (d *DirSet) Add(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("directory path is empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory %q: %w", dir, err)
	}

	if d.index == nil {
		d.index = make(map[string]struct{})
	}
	if _, exists := d.index[abs]; exists {
		return nil
	}

	d.index[abs] = struct{}{}
	d.dirs = append(d.dirs, abs)
	return nil
}

// Dirs returns a copy of the registered directories in registration order.
func (d *DirSet) Dirs() []string {
	out := make([]string, len(d.dirs))
	copy(out, d.dirs)
	return out
}

// Contains reports whether dir has been registered.
func (d *DirSet) Contains(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	_, ok := d.index[abs]
	return ok
}

// Len returns the number of registered directories.
func (d *DirSet) Len() int {
	return len(d.dirs)
}

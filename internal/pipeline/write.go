package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// writeFile runs fill against the output file at path. In atomic mode fill
// writes to a temp file in the same directory which is renamed over path on
// success and removed on failure. Otherwise path is truncated and written in
// place.
func writeFile(path string, atomic bool, fill func(f *os.File) error) error {
	if !atomic {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		err = fill(f)
		err = multierr.Append(err, f.Close())
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp output: %w", err)
	}
	tmpPath := tmp.Name()

	err = fill(tmp)
	if err == nil {
		err = tmp.Chmod(0644)
	}
	err = multierr.Append(err, tmp.Close())
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

package os

import (
	"fmt"
	"os"
)

// EnsureDir makes sure dir exists as a directory, creating it and any missing
// parents with the given mode.
func EnsureDir(dir string, mode os.FileMode) error {
	fi, err := os.Stat(dir)
	if err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("%v exists and is not a directory", dir)
		}
		return nil
	}
	// MkdirAll reports the real cause, e.g. a file in place of a parent.
	if err := os.MkdirAll(dir, mode); err != nil {
		return fmt.Errorf("could not create directory %v: %w", dir, err)
	}
	return nil
}

// FileExists reports whether something exists at filePath.
func FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

package observers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// PurgeArtifacts deletes call artifacts in dir whose modification time
// is older than maxAge. Subdirectories are left alone. It reports the
// number of files removed and any removal errors joined together.
func PurgeArtifacts(dir string, maxAge time.Duration) (int, error) {
	if dir == "" || maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge)

	var removed int
	var errs []error
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			return fs.SkipDir
		}
		info, err := d.Info()
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			return nil
		}
		removed++
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		errs = append(errs, err)
	}
	return removed, errors.Join(errs...)
}

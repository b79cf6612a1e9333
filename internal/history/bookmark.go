package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tdmap/mapbuilder/internal/storage"
	"github.com/tdmap/mapbuilder/internal/util"
)

// ReadBookmark returns the handle stored at path. A missing or blank file
// yields ok == false.
func ReadBookmark(path string) (h storage.Handle, ok bool, err error) {
	if path == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read bookmark: %w", err)
	}

	s := util.TrimLine(data)
	if s == "" {
		return "", false, nil
	}
	return storage.Handle(s), true, nil
}

// WriteBookmark replaces the bookmark at path with h.
func WriteBookmark(path string, h storage.Handle) error {
	if err := util.WriteFileAtomic(path, []byte(string(h)+"\n")); err != nil {
		return fmt.Errorf("failed to write bookmark: %w", err)
	}
	return nil
}

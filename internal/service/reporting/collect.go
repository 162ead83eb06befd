package reporting

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrRootRequired indicates an empty directory was given to walk.
var ErrRootRequired = errors.New("report directory is required")

var spreadsheetExts = map[string]struct{}{"xlsx": {}, "xlsm": {}}

// WalkStats summarizes one directory walk.
type WalkStats struct {
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
	Failed  int `json:"failed"`
}

// CollectFiles walks root and returns every spreadsheet under it in lexical
// order. Hidden entries and office lock files ("~$…") are skipped; unreadable
// entries are counted and otherwise ignored.
func CollectFiles(ctx context.Context, root string) ([]string, WalkStats, error) {
	var stats WalkStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, ErrRootRequired
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			return nil
		}
		if path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, ok := spreadsheetExts[ext]; !ok {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, stats, nil
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$")
}

// Package report manages the on-disk report workspace.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// staleExtensions are the scratch files a previous session may have left in
// the report directory.
var staleExtensions = map[string]bool{
	".json":       true,
	".txt":        true,
	".attach":     true,
	".properties": true,
}

// Cleaner removes leftovers from earlier sessions so reports never mix runs.
type Cleaner struct {
	dir string
	log logrus.FieldLogger
}

func NewCleaner(dir string, log logrus.FieldLogger) *Cleaner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cleaner{dir: dir, log: log}
}

// Clean deletes stale report files directly under the directory. A missing
// directory is created instead. Returns how many files were removed.
func (c *Cleaner) Clean() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return 0, fmt.Errorf("create report directory: %w", err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read report directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !staleExtensions[ext] {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove stale report file: %w", err)
		}
		c.log.WithField("file", path).Debug("removed stale report file")
		removed++
	}
	return removed, nil
}

// Hook adapts Clean for session-start registration.
func (c *Cleaner) Hook() func() error {
	return func() error {
		_, err := c.Clean()
		return err
	}
}

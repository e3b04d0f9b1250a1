package recorder

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tunerd/tunerd/internal/metrics"
)

// cleanupRetention deletes recordings older than the retention window and
// removes directories the deletion left empty. It only ever touches paths
// under the configured root.
func (s *Supervisor) cleanupRetention() {
	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	deleted := 0
	err := filepath.WalkDir(s.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr != nil {
				s.logger.Warn("retention delete failed", "path", path, "error", rmErr)
			} else {
				deleted++
				s.logger.Info("retention deleted recording", "path", path, "age", s.now().Sub(info.ModTime()).Round(time.Hour))
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("retention walk failed", "root", s.cfg.Root, "error", err)
		return
	}
	if deleted > 0 {
		metrics.AddRetentionDeleted(deleted)
		s.removeEmptyDirs()
	}
}

// removeEmptyDirs prunes now-empty channel directories directly under root.
func (s *Supervisor) removeEmptyDirs() {
	entries, err := os.ReadDir(s.cfg.Root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.cfg.Root, e.Name())
		sub, err := os.ReadDir(dir)
		if err != nil || len(sub) > 0 {
			continue
		}
		if err := os.Remove(dir); err == nil {
			s.logger.Info("removed empty channel dir", "path", dir)
		}
	}
}

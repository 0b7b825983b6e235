package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/models"
)

// CollectionStore persists the full channel collection as one JSON
// document on bulk storage. Writes are atomic: the document is written
// to a temp file in the same directory and renamed over the target, so
// a crash mid-write never leaves a partial file visible to the next
// read.
type CollectionStore struct {
	path         string
	legacyPath   string
	minFreeBytes uint64
	migrated     bool
	logger       *logger.Logger
}

// CollectionOptions holds collection store configuration
type CollectionOptions struct {
	DataDir        string
	CollectionFile string
	LegacyDataDir  string
	MinFreeSpaceMB int64
}

// NewCollectionStore creates a collection store rooted at the data dir
func NewCollectionStore(opts CollectionOptions) *CollectionStore {
	s := &CollectionStore{
		path:   filepath.Join(opts.DataDir, opts.CollectionFile),
		logger: logger.AppLogger(),
	}
	if opts.LegacyDataDir != "" {
		s.legacyPath = filepath.Join(opts.LegacyDataDir, opts.CollectionFile)
	}
	if opts.MinFreeSpaceMB > 0 {
		s.minFreeBytes = uint64(opts.MinFreeSpaceMB) * 1024 * 1024
	}
	return s
}

// Path returns the collection file location
func (s *CollectionStore) Path() string {
	return s.path
}

// Load reads the persisted collection. A missing file is "no saved
// state", not an error. The first read checks the legacy location and
// migrates the file over when the current one does not exist yet.
func (s *CollectionStore) Load() ([]models.Channel, error) {
	if !s.migrated {
		s.migrateLegacy()
		s.migrated = true
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StoreError("reading collection file", err).
			WithContext("path", s.path)
	}

	var channels []models.Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, apperrors.StoreError("collection file is corrupt", err).
			WithContext("path", s.path)
	}
	return channels, nil
}

// Save writes the collection atomically
func (s *CollectionStore) Save(channels []models.Channel) error {
	data, err := json.MarshalIndent(channels, "", "  ")
	if err != nil {
		return apperrors.StoreError("encoding collection", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.StoreError("creating data directory", err).
			WithContext("path", dir)
	}

	if s.minFreeBytes > 0 {
		if err := checkSpaceBeforeWrite(dir, uint64(len(data)), s.minFreeBytes); err != nil {
			return apperrors.StoreError("refusing collection write", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".channels-*.tmp")
	if err != nil {
		return apperrors.StoreError("creating temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.StoreError("writing collection", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.StoreError("syncing collection", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.StoreError("closing temp file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperrors.StoreError("replacing collection file", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":     s.path,
		"channels": len(channels),
		"bytes":    len(data),
	}).Debug("collection written")

	return nil
}

// PruneOrphans drops channels whose origin playlist no longer exists
func PruneOrphans(channels []models.Channel, validPlaylistIDs map[string]bool) []models.Channel {
	kept := channels[:0]
	for _, ch := range channels {
		if validPlaylistIDs[ch.OriginPlaylistID] {
			kept = append(kept, ch)
		}
	}
	return kept
}

// migrateLegacy moves the collection file from its legacy location
// when the current one is absent. Runs lazily, once, on first access.
func (s *CollectionStore) migrateLegacy() {
	if s.legacyPath == "" {
		return
	}
	if _, err := os.Stat(s.path); err == nil {
		return
	}
	if _, err := os.Stat(s.legacyPath); err != nil {
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("legacy migration skipped: " + err.Error())
		return
	}
	if err := os.Rename(s.legacyPath, s.path); err != nil {
		// Cross-device rename fails; fall back to copy
		data, readErr := os.ReadFile(s.legacyPath)
		if readErr != nil {
			s.logger.Warn("legacy migration skipped: " + readErr.Error())
			return
		}
		if writeErr := os.WriteFile(s.path, data, 0o644); writeErr != nil {
			s.logger.Warn("legacy migration skipped: " + writeErr.Error())
			return
		}
		os.Remove(s.legacyPath)
	}

	s.logger.WithFields(map[string]interface{}{
		"from": s.legacyPath,
		"to":   s.path,
	}).Info("migrated collection from legacy location")
}

package storage

import (
	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// Compile-time check to ensure FileVersionStore implements VersionStore
var _ interfaces.VersionStore = (*FileVersionStore)(nil)

// FileVersionStore keeps the version marker in a single JSON file.
type FileVersionStore struct {
	store interfaces.JSONStore
	name  string
}

// NewFileVersionStore stores the marker as name inside store.
func NewFileVersionStore(store interfaces.JSONStore, name string) *FileVersionStore {
	return &FileVersionStore{
		store: store,
		name:  name,
	}
}

// Load returns the stored version. A missing or unreadable marker is
// reported as not found, never as an error.
func (s *FileVersionStore) Load() (string, bool, error) {
	var marker entities.VersionMarker
	if err := s.store.ReadJSON(s.name, &marker); err != nil {
		logging.Debug("No previous version marker", "file", s.name, "error", err)
		return "", false, nil
	}
	return marker.VersionID, true, nil
}

// Save writes the marker.
func (s *FileVersionStore) Save(versionID string) error {
	return s.store.WriteJSON(s.name, entities.VersionMarker{VersionID: versionID})
}

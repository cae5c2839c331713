package storage

import (
	"fmt"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// VersionCheck is the outcome of comparing a fetched version with the
// persisted marker.
type VersionCheck struct {
	Previous string
	Current  string
	Changed  bool
}

// Writer persists table documents, optionally skipping the write when the
// upstream version has not changed since the last run.
type Writer struct {
	versions interfaces.VersionStore
	tables   interfaces.TableStore
	gate     bool
}

// NewWriter creates a writer. With gate false every run is treated as a
// change.
func NewWriter(versions interfaces.VersionStore, tables interfaces.TableStore, gate bool) *Writer {
	return &Writer{
		versions: versions,
		tables:   tables,
		gate:     gate,
	}
}

// Gated reports whether writes are gated on version changes.
func (w *Writer) Gated() bool {
	return w.gate
}

// Check compares version with the persisted marker using exact string
// equality. Without gating, or without a marker, Changed is always true.
func (w *Writer) Check(version string) (VersionCheck, error) {
	previous, found, err := w.versions.Load()
	if err != nil {
		return VersionCheck{}, fmt.Errorf("failed to load previous version: %w", err)
	}

	return VersionCheck{
		Previous: previous,
		Current:  version,
		Changed:  !w.gate || !found || previous != version,
	}, nil
}

// Persist writes the table document followed by the version marker.
func (w *Writer) Persist(doc entities.TableDocument) error {
	if err := w.tables.WriteTable(doc); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := w.versions.Save(doc.Version); err != nil {
		return fmt.Errorf("failed to write version marker: %w", err)
	}
	return nil
}

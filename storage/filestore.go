// Package storage persists the lookup table, the auxiliary ValueSets and the
// version marker as pretty-printed JSON files.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// Compile-time checks
var (
	_ interfaces.JSONStore  = (*FileStore)(nil)
	_ interfaces.TableStore = (*FileStore)(nil)
)

// TableFileName is the name of the table document inside the table directory.
const TableFileName = "nvc-bundle.json"

// FileStore reads and writes JSON files below a root directory.
type FileStore struct {
	root     string
	tableDir string
}

// NewFileStore creates a store rooted at root. tableDir is the directory,
// relative to root, holding the table document.
func NewFileStore(root, tableDir string) *FileStore {
	return &FileStore{
		root:     root,
		tableDir: tableDir,
	}
}

// resolve turns a store-relative name into a path, refusing names that
// escape the root.
func (s *FileStore) resolve(name string) (string, error) {
	cleanName := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleanName) || cleanName == ".." || strings.HasPrefix(cleanName, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid filepath: %s", name)
	}
	return filepath.Join(s.root, cleanName), nil
}

// WriteJSON writes v as UTF-8 JSON indented with two spaces, creating parent
// directories as needed.
func (s *FileStore) WriteJSON(name string, v any) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	// #nosec G306 -- output files are committed to a public repository
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	logging.Debug(fmt.Sprintf("%s written", path), "bytes", len(data))
	return nil
}

// ReadJSON decodes the file at name into v.
func (s *FileStore) ReadJSON(name string, v any) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	// #nosec G304 -- path is confined to the store root by resolve
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// WriteTable writes the table document.
func (s *FileStore) WriteTable(doc entities.TableDocument) error {
	if doc.Table == nil {
		doc.Table = entities.LookupTable{}
	}
	return s.WriteJSON(filepath.ToSlash(filepath.Join(s.tableDir, TableFileName)), doc)
}

// ReadTable loads a previously written table document.
func (s *FileStore) ReadTable() (*entities.TableDocument, error) {
	var doc entities.TableDocument
	if err := s.ReadJSON(filepath.ToSlash(filepath.Join(s.tableDir, TableFileName)), &doc); err != nil {
		return nil, err
	}
	if doc.Table == nil {
		doc.Table = entities.LookupTable{}
	}
	return &doc, nil
}

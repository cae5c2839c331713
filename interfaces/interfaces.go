// Package interfaces defines core abstractions for the NVC sync job
// to improve testability and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// TableQualityReport summarizes data quality issues found in a bundle and
// the table built from it. Issues are reported, never fixed.
type TableQualityReport struct {
	DuplicateCodes         []string // vaccine codes defined by more than one concept
	UnresolvedDiseaseCodes []string // disease codes absent from the disease lookup
	UnresolvedMAHCodes     []string // MAH codes absent from the MAH lookup
	SkippedResources       []string // entry ids that are neither vaccine kinds nor auxiliary
	RecordsWithoutDisease  int
	RecordsWithMAH         int
}

// Fetcher retrieves the current bundle snapshot from the upstream API.
type Fetcher interface {
	Fetch(ctx context.Context) (*entities.Bundle, error)
}

// JSONStore reads and writes JSON documents addressed by a path relative
// to the store root.
type JSONStore interface {
	WriteJSON(name string, v any) error
	ReadJSON(name string, v any) error
}

// VersionStore is the key-value record holding the last persisted bundle
// version. found is false when no version was ever stored.
type VersionStore interface {
	Load() (version string, found bool, err error)
	Save(versionID string) error
}

// TableStore persists and reloads the flattened lookup table.
type TableStore interface {
	WriteTable(doc entities.TableDocument) error
	ReadTable() (*entities.TableDocument, error)
}

// DataStore provides thread-safe access to the current lookup table for the
// serve mode, with atomic replacement on update.
type DataStore interface {
	GetTable() entities.LookupTable
	GetVersion() string
	GetLastUpdated() time.Time
	GetLastChecked() time.Time
	GetReport() *TableQualityReport
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateData(version string, table entities.LookupTable, report *TableQualityReport)
	MarkChecked()
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling and staleness monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the status, details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled run
	CalculateNextUpdate() time.Time
}

// HTTPHandler serves the lookup table over HTTP.
type HTTPHandler interface {
	ServeTable(w http.ResponseWriter, r *http.Request)
	ServeVaccine(w http.ResponseWriter, r *http.Request)
	ServeVersion(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// TableValidator inspects a bundle and the table built from it.
type TableValidator interface {
	ReportTableQuality(bundle *entities.Bundle, table entities.LookupTable, disease, mah entities.NameLookup) *TableQualityReport
	ValidateCode(input string) error
}

// Package data holds the lookup table served over HTTP. The table, its
// version and its quality report are swapped together so readers never see
// a table paired with another run's version.
package data

import (
	"sync/atomic"
	"time"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

type snapshot struct {
	version     string
	table       entities.LookupTable
	report      *interfaces.TableQualityReport
	lastUpdated time.Time
}

// DataContainer holds the current table behind an atomic pointer for
// zero-downtime updates
type DataContainer struct {
	current         atomic.Pointer[snapshot]
	lastChecked     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with an empty table
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.current.Store(&snapshot{table: make(entities.LookupTable)})
	dc.lastChecked.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func (dc *DataContainer) load() *snapshot {
	if s := dc.current.Load(); s != nil {
		return s
	}
	logging.Warn("Data container has no snapshot")
	return &snapshot{table: make(entities.LookupTable)}
}

// GetTable returns the current lookup table. Callers must not modify it.
func (dc *DataContainer) GetTable() entities.LookupTable {
	return dc.load().table
}

// GetVersion returns the bundle version of the current table
func (dc *DataContainer) GetVersion() string {
	return dc.load().version
}

// GetLastUpdated returns when the current table was installed
func (dc *DataContainer) GetLastUpdated() time.Time {
	return dc.load().lastUpdated
}

// GetReport returns the quality report of the current table, nil if none
func (dc *DataContainer) GetReport() *interfaces.TableQualityReport {
	return dc.load().report
}

// GetLastChecked returns when the upstream version was last checked
func (dc *DataContainer) GetLastChecked() time.Time {
	if v := dc.lastChecked.Load(); v != nil {
		if lastChecked, ok := v.(time.Time); ok {
			return lastChecked
		}
	}

	logging.Warn("Could not get the last checked value")
	return time.Time{}
}

// IsUpdating returns true if a sync run is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically replaces the table, its version and report. It also
// counts as a check.
func (dc *DataContainer) UpdateData(version string, table entities.LookupTable, report *interfaces.TableQualityReport) {
	if table == nil {
		table = make(entities.LookupTable)
	}
	now := time.Now()
	dc.current.Store(&snapshot{
		version:     version,
		table:       table,
		report:      report,
		lastUpdated: now,
	})
	dc.lastChecked.Store(now)
}

// MarkChecked records an upstream check that did not change the table
func (dc *DataContainer) MarkChecked() {
	dc.lastChecked.Store(time.Now())
}

// BeginUpdate marks the start of a sync run
// Returns true if the run can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a sync run
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}

// Package health provides health checking for the serve mode.
package health

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	schedule  []time.Duration // offsets from midnight, sorted
}

// NewHealthChecker creates a health checker for a sync scheduled at each
// HH:MM in scheduleAt. Entries that do not parse are ignored.
func NewHealthChecker(dataStore interfaces.DataStore, scheduleAt []string) interfaces.HealthChecker {
	h := &HealthCheckerImpl{dataStore: dataStore}
	for _, at := range scheduleAt {
		t, err := time.Parse("15:04", at)
		if err != nil {
			logging.Warn("Ignoring invalid schedule time", "at", at, "error", err)
			continue
		}
		h.schedule = append(h.schedule, time.Duration(t.Hour())*time.Hour+time.Duration(t.Minute())*time.Minute)
	}
	sort.Slice(h.schedule, func(i, j int) bool { return h.schedule[i] < h.schedule[j] })
	return h
}

// HealthCheck returns the status, details and HTTP status for /health. Age
// is measured from the last successful check, since an unchanged upstream
// version leaves the table itself untouched.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	table := h.dataStore.GetTable()
	lastUpdate := h.dataStore.GetLastUpdated()
	lastChecked := h.dataStore.GetLastChecked()
	isUpdating := h.dataStore.IsUpdating()

	checkAge := time.Since(lastChecked)

	switch {
	case len(table) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case checkAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case checkAge > 26*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && checkAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"version":        h.dataStore.GetVersion(),
		"records":        len(table),
		"last_update":    lastUpdate.Format(time.RFC3339),
		"last_checked":   lastChecked.Format(time.RFC3339),
		"data_age_hours": math.Round(checkAge.Hours()*10) / 10,
		"is_updating":    isUpdating,
	}

	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}

	if report := h.dataStore.GetReport(); report != nil {
		data["duplicate_codes"] = len(report.DuplicateCodes)
		data["unresolved_disease_codes"] = len(report.UnresolvedDiseaseCodes)
		data["unresolved_mah_codes"] = len(report.UnresolvedMAHCodes)
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled run, or the zero time
// without a schedule
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return h.nextAfter(time.Now())
}

func (h *HealthCheckerImpl) nextAfter(now time.Time) time.Time {
	if len(h.schedule) == 0 {
		return time.Time{}
	}

	for _, offset := range h.schedule {
		if candidate := at(now, 0, offset); candidate.After(now) {
			return candidate
		}
	}

	// All of today's runs are past, the first one tomorrow is next
	return at(now, 1, h.schedule[0])
}

// at returns the wall clock time offset from midnight, days after day
func at(day time.Time, days int, offset time.Duration) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+days,
		int(offset/time.Hour), int(offset%time.Hour/time.Minute), 0, 0, day.Location())
}

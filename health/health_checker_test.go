package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// MockHealthDataStore for testing
type MockHealthDataStore struct {
	table       entities.LookupTable
	version     string
	lastUpdated time.Time
	lastChecked time.Time
	report      *interfaces.TableQualityReport
	isUpdating  bool
}

func (m *MockHealthDataStore) GetTable() entities.LookupTable { return m.table }
func (m *MockHealthDataStore) GetVersion() string { return m.version }
func (m *MockHealthDataStore) GetLastUpdated() time.Time { return m.lastUpdated }
func (m *MockHealthDataStore) GetLastChecked() time.Time { return m.lastChecked }
func (m *MockHealthDataStore) GetReport() *interfaces.TableQualityReport { return m.report }
func (m *MockHealthDataStore) IsUpdating() bool { return m.isUpdating }
func (m *MockHealthDataStore) GetServerStartTime() time.Time { return time.Time{} }
func (m *MockHealthDataStore) MarkChecked() { m.lastChecked = time.Now() }
func (m *MockHealthDataStore) BeginUpdate() bool { return true }
func (m *MockHealthDataStore) EndUpdate() {}

func (m *MockHealthDataStore) UpdateData(version string, table entities.LookupTable, report *interfaces.TableQualityReport) {
	m.version = version
	m.table = table
	m.report = report
	m.lastUpdated = time.Now()
	m.lastChecked = m.lastUpdated
}

func oneRecord() entities.LookupTable {
	return entities.LookupTable{"V001": {Display: map[string]string{"en": "Vaccine Alpha"}}}
}

func TestHealthCheckStatuses(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name       string
		store      *MockHealthDataStore
		wantStatus string
		wantHTTP   int
	}{
		{
			name:       "empty table",
			store:      &MockHealthDataStore{lastChecked: now},
			wantStatus: "unhealthy",
			wantHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:       "fresh",
			store:      &MockHealthDataStore{table: oneRecord(), lastChecked: now.Add(-time.Hour)},
			wantStatus: "healthy",
			wantHTTP:   http.StatusOK,
		},
		{
			name:       "old table recently checked",
			store:      &MockHealthDataStore{table: oneRecord(), lastUpdated: now.Add(-30 * 24 * time.Hour), lastChecked: now.Add(-time.Hour)},
			wantStatus: "healthy",
			wantHTTP:   http.StatusOK,
		},
		{
			name:       "missed one run",
			store:      &MockHealthDataStore{table: oneRecord(), lastChecked: now.Add(-30 * time.Hour)},
			wantStatus: "degraded",
			wantHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:       "long running update",
			store:      &MockHealthDataStore{table: oneRecord(), lastChecked: now.Add(-7 * time.Hour), isUpdating: true},
			wantStatus: "degraded",
			wantHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:       "not checked for days",
			store:      &MockHealthDataStore{table: oneRecord(), lastChecked: now.Add(-72 * time.Hour)},
			wantStatus: "unhealthy",
			wantHTTP:   http.StatusServiceUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			checker := NewHealthChecker(tc.store, []string{"06:00"})

			status, _, httpStatus := checker.HealthCheck()

			if status != tc.wantStatus {
				t.Errorf("status = %q, want %q", status, tc.wantStatus)
			}
			if httpStatus != tc.wantHTTP {
				t.Errorf("http status = %d, want %d", httpStatus, tc.wantHTTP)
			}
		})
	}
}

func TestHealthCheckDetails(t *testing.T) {
	store := &MockHealthDataStore{}
	store.UpdateData("42", oneRecord(), &interfaces.TableQualityReport{
		DuplicateCodes:         []string{"V001"},
		UnresolvedDiseaseCodes: []string{"D9", "D8"},
	})
	checker := NewHealthChecker(store, []string{"06:00", "18:00"})

	_, details, _ := checker.HealthCheck()

	expected := map[string]any{
		"version":                  "42",
		"records":                  1,
		"is_updating":              false,
		"duplicate_codes":          1,
		"unresolved_disease_codes": 2,
		"unresolved_mah_codes":     0,
	}
	for key, want := range expected {
		if details[key] != want {
			t.Errorf("details[%q] = %v, want %v", key, details[key], want)
		}
	}
	for _, key := range []string{"last_update", "last_checked", "data_age_hours", "next_update"} {
		if _, ok := details[key]; !ok {
			t.Errorf("details should contain %q", key)
		}
	}
}

func TestNextAfter(t *testing.T) {
	loc := time.UTC
	checker := NewHealthChecker(&MockHealthDataStore{}, []string{"18:00", "06:00", "bogus"}).(*HealthCheckerImpl)

	testCases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 1, 5, 0, 0, 0, loc), time.Date(2026, 3, 1, 6, 0, 0, 0, loc)},
		{time.Date(2026, 3, 1, 6, 0, 0, 0, loc), time.Date(2026, 3, 1, 18, 0, 0, 0, loc)},
		{time.Date(2026, 3, 1, 12, 30, 0, 0, loc), time.Date(2026, 3, 1, 18, 0, 0, 0, loc)},
		{time.Date(2026, 3, 1, 19, 0, 0, 0, loc), time.Date(2026, 3, 2, 6, 0, 0, 0, loc)},
		{time.Date(2026, 12, 31, 23, 0, 0, 0, loc), time.Date(2027, 1, 1, 6, 0, 0, 0, loc)},
	}

	for _, tc := range testCases {
		if got := checker.nextAfter(tc.now); !got.Equal(tc.want) {
			t.Errorf("nextAfter(%s) = %s, want %s", tc.now, got, tc.want)
		}
	}
}

func TestCalculateNextUpdateWithoutSchedule(t *testing.T) {
	checker := NewHealthChecker(&MockHealthDataStore{}, nil)

	if !checker.CalculateNextUpdate().IsZero() {
		t.Error("Expected zero time without a schedule")
	}

	store := &MockHealthDataStore{table: oneRecord(), lastChecked: time.Now()}
	_, details, _ := NewHealthChecker(store, nil).HealthCheck()
	if _, ok := details["next_update"]; ok {
		t.Error("next_update should be absent without a schedule")
	}
}

func TestCalculateNextUpdateIsInTheFuture(t *testing.T) {
	checker := NewHealthChecker(&MockHealthDataStore{}, []string{"06:00"})

	next := checker.CalculateNextUpdate()
	if !next.After(time.Now()) {
		t.Errorf("next update %s should be in the future", next)
	}
	if time.Until(next) > 24*time.Hour {
		t.Errorf("next update %s should be within a day", next)
	}
}

// Package handlers provides the HTTP handlers of the serve mode: the full
// lookup table, single vaccine records, the current version and health.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.TableValidator
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.TableValidator, healthChecker interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Uptime        string         `json:"uptime"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// VersionResponse is the body of /v1/version
type VersionResponse struct {
	VersionID   string `json:"versionId"`
	Records     int    `json:"records"`
	LastUpdate  string `json:"last_update"`
	LastChecked string `json:"last_checked"`
}

// VaccineResponse is the body of /v1/vaccines/{code}
type VaccineResponse struct {
	Code    string                 `json:"code"`
	Version string                 `json:"version"`
	Record  entities.VaccineRecord `json:"record"`
}

// RespondWithJSON writes payload as JSON with the given status code
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if lastUpdated := h.dataStore.GetLastUpdated(); !lastUpdated.IsZero() {
		w.Header().Set("Last-Modified", lastUpdated.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// etag derives a strong validator from the table version
func etag(version string) string {
	return fmt.Sprintf("%q", "nvc-"+version)
}

// notModified sets the ETag header and reports whether the client copy is
// current
func notModified(w http.ResponseWriter, r *http.Request, version string) bool {
	if version == "" {
		return false
	}
	tag := etag(version)
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "public, max-age=300")

	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		if c := strings.TrimSpace(candidate); c == tag || c == "*" {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// ServeTable returns the whole table in the same shape as nvc-bundle.json
func (h *HTTPHandlerImpl) ServeTable(w http.ResponseWriter, r *http.Request) {
	table := h.dataStore.GetTable()
	version := h.dataStore.GetVersion()

	if len(table) == 0 {
		h.RespondWithError(w, http.StatusServiceUnavailable, "Vaccine table not loaded yet")
		return
	}

	if notModified(w, r, version) {
		return
	}

	h.RespondWithJSON(w, http.StatusOK, entities.TableDocument{Version: version, Table: table})
}

// ServeVaccine returns the record of a single vaccine code
func (h *HTTPHandlerImpl) ServeVaccine(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.validator.ValidateCode(code); err != nil {
		logging.Warn("Unusual user input", "code", code, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, exists := h.dataStore.GetTable()[code]
	if !exists {
		h.RespondWithError(w, http.StatusNotFound, "Vaccine code not found")
		return
	}

	version := h.dataStore.GetVersion()
	if notModified(w, r, version) {
		return
	}

	h.RespondWithJSON(w, http.StatusOK, VaccineResponse{Code: code, Version: version, Record: record})
}

// ServeVersion returns the bundle version currently served
func (h *HTTPHandlerImpl) ServeVersion(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, VersionResponse{
		VersionID:   h.dataStore.GetVersion(),
		Records:     len(h.dataStore.GetTable()),
		LastUpdate:  h.dataStore.GetLastUpdated().Format(time.RFC3339),
		LastChecked: h.dataStore.GetLastChecked().Format(time.RFC3339),
	})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.dataStore.GetServerStartTime())
	status, data, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Uptime:        formatUptimeHuman(uptime),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}

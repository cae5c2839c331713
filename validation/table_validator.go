// Package validation inspects NVC bundles and the lookup tables built from
// them, and validates user supplied vaccine codes.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/nvcparser"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// maxCodeLength bounds codes accepted from HTTP paths
const maxCodeLength = 64

// Concept codes are alphanumeric with a few separators
var codeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]*$`)

// Compile-time check to ensure TableValidatorImpl implements TableValidator
var _ interfaces.TableValidator = (*TableValidatorImpl)(nil)

// TableValidatorImpl implements the interfaces.TableValidator interface
type TableValidatorImpl struct{}

// NewTableValidator creates a new table validator
func NewTableValidator() interfaces.TableValidator {
	return &TableValidatorImpl{}
}

// ReportTableQuality collects data quality issues. A nil lookup means the
// lookup was not built, and its codes are not reported as unresolved.
func (v *TableValidatorImpl) ReportTableQuality(
	bundle *entities.Bundle,
	table entities.LookupTable,
	disease, mah entities.NameLookup,
) *interfaces.TableQualityReport {
	report := &interfaces.TableQualityReport{
		DuplicateCodes:         []string{},
		UnresolvedDiseaseCodes: []string{},
		UnresolvedMAHCodes:     []string{},
		SkippedResources:       []string{},
	}

	if bundle != nil {
		seen := make(map[string]int)
		unresolvedDisease := make(map[string]bool)
		unresolvedMAH := make(map[string]bool)

		for i := range bundle.Entry {
			resource := &bundle.Entry[i].Resource

			// Check 1: resources that feed neither the table nor a lookup
			if !nvcparser.IsVaccineKind(resource.ID) {
				if !nvcparser.IsAuxiliaryResource(resource.ID) {
					report.SkippedResources = append(report.SkippedResources, resource.ID)
				}
				continue
			}

			for _, include := range resource.Compose.Include {
				for _, concept := range include.Concept {
					// Check 2: codes defined more than once
					seen[concept.Code]++

					// Check 3: extension codes missing from the lookups
					if disease != nil {
						diseases := nvcparser.ResolveExtension(concept.Extension, nvcparser.DiseaseExtensionURL)
						for _, code := range diseases.Codes() {
							if _, ok := disease[code]; !ok {
								unresolvedDisease[code] = true
							}
						}
					}
					if mah != nil {
						mahs := nvcparser.ResolveExtension(concept.Extension, nvcparser.MAHExtensionURL)
						if code, _, ok := mahs.First(); ok {
							if _, found := mah[code]; !found {
								unresolvedMAH[code] = true
							}
						}
					}
				}
			}
		}

		for code, count := range seen {
			if count > 1 {
				report.DuplicateCodes = append(report.DuplicateCodes, code)
			}
		}
		for code := range unresolvedDisease {
			report.UnresolvedDiseaseCodes = append(report.UnresolvedDiseaseCodes, code)
		}
		for code := range unresolvedMAH {
			report.UnresolvedMAHCodes = append(report.UnresolvedMAHCodes, code)
		}
		slices.Sort(report.DuplicateCodes)
		slices.Sort(report.UnresolvedDiseaseCodes)
		slices.Sort(report.UnresolvedMAHCodes)
	}

	// Check 4: record level counters
	for _, record := range table {
		if record.HasMAH() {
			report.RecordsWithMAH++
		}
		hasDisease := false
		for _, names := range record.Disease {
			if len(names) > 0 {
				hasDisease = true
				break
			}
		}
		if !hasDisease {
			report.RecordsWithoutDisease++
		}
	}

	return report
}

// ValidateCode validates a vaccine concept code taken from a request path
func (v *TableValidatorImpl) ValidateCode(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("code cannot be empty")
	}

	if len(input) > maxCodeLength {
		return fmt.Errorf("code too long: maximum %d characters", maxCodeLength)
	}

	if !codeRegex.MatchString(input) {
		return fmt.Errorf("code contains invalid characters. Only letters, numbers, periods, hyphens and underscores are allowed")
	}

	return nil
}

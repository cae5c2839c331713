// Package nvcparser provides functionality for downloading the National Vaccine Catalogue
// bundle and flattening it into a vaccine lookup table.
package nvcparser

// ValueSet ids found in the NVC bundle.
const (
	ResourceGeneric            = "Generic"
	ResourceTradename          = "Tradename"
	ResourceAntigenIgAntitoxin = "AntigenIgAntitoxin"
	ResourceDisease            = "Disease"
	ResourceMAH                = "MarketAuthorizationHolder"
)

// URLs identifying the semantic role of designations and extensions.
const (
	DisplayTermSystem   = "https://nvc-cnv.canada.ca/v1/NamingSystem/nvc-display-terms-designation"
	DiseaseExtensionURL = "https://nvc-cnv.canada.ca/v1/StructureDefinition/nvc-disease"
	MAHExtensionURL     = "https://nvc-cnv.canada.ca/v1/StructureDefinition/nvc-market-authorization-holder"
)

// VaccineKinds are the ValueSet ids whose concepts end up in the lookup table.
var VaccineKinds = []string{ResourceGeneric, ResourceTradename, ResourceAntigenIgAntitoxin}

// IsVaccineKind reports whether a ValueSet id is one of VaccineKinds.
func IsVaccineKind(id string) bool {
	for _, kind := range VaccineKinds {
		if id == kind {
			return true
		}
	}
	return false
}

// Auxiliary lookup names as used in configuration.
const (
	LookupDisease = "disease"
	LookupMAH     = "mah"
)

// auxiliaryResources maps a lookup name to the ValueSet it is built from and
// the file its compose block is persisted to.
var auxiliaryResources = map[string]struct {
	resourceID string
	fileName   string
}{
	LookupDisease: {resourceID: ResourceDisease, fileName: "disease.json"},
	LookupMAH:     {resourceID: ResourceMAH, fileName: "mah.json"},
}

// IsAuxiliaryResource reports whether a ValueSet id feeds an auxiliary lookup.
func IsAuxiliaryResource(id string) bool {
	for _, aux := range auxiliaryResources {
		if aux.resourceID == id {
			return true
		}
	}
	return false
}

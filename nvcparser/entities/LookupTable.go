package entities

import (
	"encoding/json"
	"strings"
)

// LookupTable maps a vaccine concept code to its flattened record.
type LookupTable map[string]VaccineRecord

// VaccineRecord holds the localized names of one vaccine concept. Fields are
// keyed by language ("en", "fr", ...) and serialized with the upper-cased
// language appended to the field name: displayEN, diseaseFR, MAHEN.
type VaccineRecord struct {
	Display map[string]string
	Disease map[string][]DiseaseName
	MAH     map[string]string
}

// DiseaseName is a single {code: name} pair.
type DiseaseName map[string]string

// NewVaccineRecord creates a record with an empty disease list for every
// language so that the serialized record always carries the disease fields.
func NewVaccineRecord(languages []string) VaccineRecord {
	r := VaccineRecord{
		Display: make(map[string]string, len(languages)),
		Disease: make(map[string][]DiseaseName, len(languages)),
	}
	for _, lang := range languages {
		r.Disease[lang] = []DiseaseName{}
	}
	return r
}

// HasMAH reports whether a market-authorization holder was resolved.
func (r VaccineRecord) HasMAH() bool {
	return len(r.MAH) > 0
}

func fieldName(prefix, lang string) string {
	return prefix + strings.ToUpper(lang)
}

// MarshalJSON flattens the per-language maps into top-level fields.
// encoding/json sorts map keys, so the output is stable across runs.
func (r VaccineRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Display)+len(r.Disease)+len(r.MAH))
	for lang, name := range r.Display {
		out[fieldName("display", lang)] = name
	}
	for lang, names := range r.Disease {
		if names == nil {
			names = []DiseaseName{}
		}
		out[fieldName("disease", lang)] = names
	}
	for lang, name := range r.MAH {
		out[fieldName("MAH", lang)] = name
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. It is used when the serve
// mode reloads a previously written table.
func (r *VaccineRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Display = make(map[string]string)
	r.Disease = make(map[string][]DiseaseName)
	r.MAH = nil

	for key, value := range raw {
		switch {
		case strings.HasPrefix(key, "display"):
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return err
			}
			r.Display[strings.ToLower(strings.TrimPrefix(key, "display"))] = name
		case strings.HasPrefix(key, "disease"):
			var names []DiseaseName
			if err := json.Unmarshal(value, &names); err != nil {
				return err
			}
			if names == nil {
				names = []DiseaseName{}
			}
			r.Disease[strings.ToLower(strings.TrimPrefix(key, "disease"))] = names
		case strings.HasPrefix(key, "MAH"):
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return err
			}
			if r.MAH == nil {
				r.MAH = make(map[string]string)
			}
			r.MAH[strings.ToLower(strings.TrimPrefix(key, "MAH"))] = name
		}
	}
	return nil
}

// TableDocument is the persisted form of a lookup table.
type TableDocument struct {
	Version string      `json:"version"`
	Table   LookupTable `json:"table"`
}

// VersionMarker is the persisted change-detection record.
type VersionMarker struct {
	VersionID string `json:"versionId"`
}

// LocalizedNames maps a language to a display name.
type LocalizedNames map[string]string

// NameLookup maps a concept code to its localized names. Used for the
// disease and market-authorization-holder lookups.
type NameLookup map[string]LocalizedNames

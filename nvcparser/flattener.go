package nvcparser

import (
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// Lookups holds the auxiliary name lookups consumed by the flattener. A nil
// lookup behaves like an empty one.
type Lookups struct {
	Disease entities.NameLookup
	MAH     entities.NameLookup
}

// Flattener turns a bundle into a LookupTable.
type Flattener struct {
	languages       []string
	useDesignations bool
}

// NewFlattener creates a flattener emitting one display, disease list and MAH
// name per language. With useDesignations false the raw concept display is
// used for every language.
func NewFlattener(languages []string, useDesignations bool) *Flattener {
	langs := make([]string, len(languages))
	copy(langs, languages)
	return &Flattener{
		languages:       langs,
		useDesignations: useDesignations,
	}
}

// Flatten builds the lookup table from every vaccine-kind ValueSet in the
// bundle. A code seen twice keeps the record of the last concept.
func (f *Flattener) Flatten(bundle *entities.Bundle, lookups Lookups) entities.LookupTable {
	table := make(entities.LookupTable)
	if bundle == nil {
		return table
	}

	for i := range bundle.Entry {
		resource := &bundle.Entry[i].Resource
		if !IsVaccineKind(resource.ID) {
			continue
		}

		for _, include := range resource.Compose.Include {
			for j := range include.Concept {
				concept := &include.Concept[j]
				table[concept.Code] = f.flattenConcept(concept, lookups)
			}
		}
	}

	return table
}

func (f *Flattener) flattenConcept(concept *entities.Concept, lookups Lookups) entities.VaccineRecord {
	record := entities.NewVaccineRecord(f.languages)

	for _, lang := range f.languages {
		if f.useDesignations {
			record.Display[lang] = SelectDisplay(concept, lang)
		} else {
			record.Display[lang] = concept.Display
		}
	}

	diseases := ResolveExtension(concept.Extension, DiseaseExtensionURL)
	for _, code := range diseases.Codes() {
		for _, lang := range f.languages {
			name := lookupName(lookups.Disease, code, lang, code)
			record.Disease[lang] = append(record.Disease[lang], entities.DiseaseName{code: name})
		}
	}

	mahs := ResolveExtension(concept.Extension, MAHExtensionURL)
	if code, display, ok := mahs.First(); ok {
		record.MAH = make(map[string]string, len(f.languages))
		for _, lang := range f.languages {
			record.MAH[lang] = lookupName(lookups.MAH, code, lang, display)
		}
	}

	return record
}

func lookupName(lookup entities.NameLookup, code, lang, fallback string) string {
	if names, ok := lookup[code]; ok {
		if name, ok := names[lang]; ok {
			return name
		}
	}
	return fallback
}

package nvcparser

import "github.com/phac-pdir/nvc-sync/nvcparser/entities"

// displayTermCode returns the designation use code for a language,
// e.g. "enDisplayTerm" for "en".
func displayTermCode(lang string) string {
	return lang + "DisplayTerm"
}

// SelectDisplay returns the value of the first designation tagged with lang
// whose use is the NVC display-term code for that language. The concept's
// default display is returned when no designation matches exactly.
func SelectDisplay(concept *entities.Concept, lang string) string {
	if concept == nil {
		return ""
	}

	useCode := displayTermCode(lang)
	for _, d := range concept.Designation {
		if d.Language != lang || d.Use == nil {
			continue
		}
		if d.Use.System == DisplayTermSystem && d.Use.Code == useCode {
			return d.Value
		}
	}

	return concept.Display
}

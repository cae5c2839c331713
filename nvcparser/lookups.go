package nvcparser

import (
	"fmt"
	"path"

	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// LookupBuilder persists the compose block of each auxiliary ValueSet and
// builds its code -> localized name lookup from the persisted file.
type LookupBuilder struct {
	store     interfaces.JSONStore
	dir       string
	languages []string
}

// NewLookupBuilder creates a builder writing into dir of store.
func NewLookupBuilder(store interfaces.JSONStore, dir string, languages []string) *LookupBuilder {
	return &LookupBuilder{
		store:     store,
		dir:       dir,
		languages: languages,
	}
}

// Build builds the requested lookups ("disease", "mah"). A ValueSet missing
// from the bundle, or a file that cannot be read back, yields an empty lookup.
// Failing to write a file aborts the build.
func (b *LookupBuilder) Build(bundle *entities.Bundle, names []string) (Lookups, error) {
	var lookups Lookups

	for _, name := range names {
		aux, ok := auxiliaryResources[name]
		if !ok {
			return Lookups{}, fmt.Errorf("unknown auxiliary lookup %q", name)
		}

		lookup, err := b.buildOne(bundle, aux.resourceID, path.Join(b.dir, aux.fileName))
		if err != nil {
			return Lookups{}, err
		}

		switch name {
		case LookupDisease:
			lookups.Disease = lookup
		case LookupMAH:
			lookups.MAH = lookup
		}
	}

	return lookups, nil
}

func (b *LookupBuilder) buildOne(bundle *entities.Bundle, resourceID, fileName string) (entities.NameLookup, error) {
	lookup := make(entities.NameLookup)

	resource, found := bundle.FindResource(resourceID)
	if !found {
		logging.Warn("Auxiliary ValueSet missing from bundle, lookup will be empty", "resource", resourceID)
		return lookup, nil
	}

	compose, err := resource.RawCompose()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s compose: %w", resourceID, err)
	}

	if err := b.store.WriteJSON(fileName, compose); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", fileName, err)
	}

	var persisted entities.Compose
	if err := b.store.ReadJSON(fileName, &persisted); err != nil {
		logging.Warn("Failed to read back auxiliary ValueSet, lookup will be empty",
			"resource", resourceID,
			"file", fileName,
			"error", err,
		)
		return lookup, nil
	}

	for _, include := range persisted.Include {
		for i := range include.Concept {
			concept := &include.Concept[i]
			names := make(entities.LocalizedNames, len(b.languages))
			for _, lang := range b.languages {
				names[lang] = SelectDisplay(concept, lang)
			}
			lookup[concept.Code] = names
		}
	}

	logging.Debug(fmt.Sprintf("%s lookup built from %s", resourceID, fileName), "entries", len(lookup))
	return lookup, nil
}

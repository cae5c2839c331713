package entities

import "encoding/json"

// Bundle is the root document returned by the NVC API. Only the fields the
// flattener reads are modelled; everything else is ignored on decode.
type Bundle struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id"`
	Meta         *BundleMeta `json:"meta,omitempty"`
	Entry        []Entry     `json:"entry"`
}

type BundleMeta struct {
	VersionID   string `json:"versionId"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

// VersionID returns the snapshot version identifier, or "" when the bundle
// carries no meta block.
func (b *Bundle) VersionID() string {
	if b == nil || b.Meta == nil {
		return ""
	}
	return b.Meta.VersionID
}

// FindResource returns the first entry resource with the given id.
func (b *Bundle) FindResource(id string) (*ValueSet, bool) {
	if b == nil {
		return nil, false
	}
	for i := range b.Entry {
		if b.Entry[i].Resource.ID == id {
			return &b.Entry[i].Resource, true
		}
	}
	return nil, false
}

// Entry wraps a single ValueSet resource.
type Entry struct {
	FullURL  string   `json:"fullUrl,omitempty"`
	Resource ValueSet `json:"resource"`
}

type ValueSet struct {
	ResourceType string  `json:"resourceType"`
	ID           string  `json:"id"`
	URL          string  `json:"url,omitempty"`
	Version      string  `json:"version,omitempty"`
	Name         string  `json:"name,omitempty"`
	Status       string  `json:"status,omitempty"`
	Compose      Compose `json:"compose"`

	rawCompose json.RawMessage
}

// UnmarshalJSON keeps the undecoded compose block so the auxiliary
// ValueSets can be written out exactly as the API sent them.
func (vs *ValueSet) UnmarshalJSON(data []byte) error {
	type plain ValueSet
	aux := struct {
		*plain
		RawCompose json.RawMessage `json:"compose"`
	}{plain: (*plain)(vs)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	vs.rawCompose = aux.RawCompose
	if len(aux.RawCompose) > 0 {
		if err := json.Unmarshal(aux.RawCompose, &vs.Compose); err != nil {
			return err
		}
	}
	return nil
}

// RawCompose returns the compose block as received, falling back to the
// typed representation for values built in code.
func (vs *ValueSet) RawCompose() (json.RawMessage, error) {
	if len(vs.rawCompose) > 0 {
		return vs.rawCompose, nil
	}
	return json.Marshal(vs.Compose)
}

type Compose struct {
	LockedDate string    `json:"lockedDate,omitempty"`
	Inactive   *bool     `json:"inactive,omitempty"`
	Include    []Include `json:"include"`
}

type Include struct {
	System  string    `json:"system,omitempty"`
	Version string    `json:"version,omitempty"`
	Concept []Concept `json:"concept"`
}

type Concept struct {
	Code        string        `json:"code"`
	Display     string        `json:"display"`
	Designation []Designation `json:"designation,omitempty"`
	Extension   []Extension   `json:"extension,omitempty"`
}

type Designation struct {
	Language string  `json:"language"`
	Use      *Coding `json:"use,omitempty"`
	Value    string  `json:"value"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Extension is a recursive annotation node. A node may carry a coded value,
// nested extensions, or both.
type Extension struct {
	URL                  string           `json:"url"`
	Extension            []Extension      `json:"extension,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueCoding          *Coding          `json:"valueCoding,omitempty"`
	ValueString          *string          `json:"valueString,omitempty"`
}

// Codings returns every coded value attached directly to the extension.
func (e *Extension) Codings() []Coding {
	var codings []Coding
	if e.ValueCodeableConcept != nil {
		codings = append(codings, e.ValueCodeableConcept.Coding...)
	}
	if e.ValueCoding != nil {
		codings = append(codings, *e.ValueCoding)
	}
	return codings
}

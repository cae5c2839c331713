package nvcparser

import (
	"strings"

	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
)

// maxExtensionDepth caps the recursive walk. The bundle comes from an external
// source and JSON cannot express cycles, so the cap only guards against
// pathologically deep documents.
const maxExtensionDepth = 32

// CodeMap is a code -> display mapping that remembers the order in which
// codes were first seen. Setting an existing code replaces its display but
// keeps its original position.
type CodeMap struct {
	codes    []string
	displays map[string]string
}

// Set adds or replaces a code.
func (m *CodeMap) Set(code, display string) {
	if m.displays == nil {
		m.displays = make(map[string]string)
	}
	if _, exists := m.displays[code]; !exists {
		m.codes = append(m.codes, code)
	}
	m.displays[code] = display
}

// Len returns the number of distinct codes.
func (m *CodeMap) Len() int {
	return len(m.codes)
}

// Codes returns the codes in first-seen order.
func (m *CodeMap) Codes() []string {
	out := make([]string, len(m.codes))
	copy(out, m.codes)
	return out
}

// Display returns the display attached to code.
func (m *CodeMap) Display(code string) (string, bool) {
	display, ok := m.displays[code]
	return display, ok
}

// First returns the first code seen and its current display.
func (m *CodeMap) First() (code, display string, ok bool) {
	if len(m.codes) == 0 {
		return "", "", false
	}
	code = m.codes[0]
	return code, m.displays[code], true
}

// ResolveExtension searches the extension tree depth-first for nodes whose url
// matches target (trimmed, case-insensitive) and merges the coded values of
// every match. Children are visited whether or not their parent matched.
// Missing or malformed subtrees contribute nothing.
func ResolveExtension(extensions []entities.Extension, target string) CodeMap {
	var result CodeMap

	target = strings.TrimSpace(target)
	if target == "" {
		return result
	}

	var matches []*entities.Extension
	collectMatching(extensions, target, 0, &matches)

	for _, ext := range matches {
		for _, coding := range ext.Codings() {
			result.Set(coding.Code, coding.Display)
		}
	}

	return result
}

func collectMatching(extensions []entities.Extension, target string, depth int, matches *[]*entities.Extension) {
	if depth >= maxExtensionDepth {
		return
	}
	for i := range extensions {
		ext := &extensions[i]
		if strings.EqualFold(strings.TrimSpace(ext.URL), target) {
			*matches = append(*matches, ext)
		}
		collectMatching(ext.Extension, target, depth+1, matches)
	}
}

// Package registry holds the three read-only reference datasets the
// enrichment stages consult: courts, reporters, and judge initials. Each is
// a process-wide singleton seeded with built-in data and optionally
// overlaid with a user-supplied YAML file, mirroring the teacher's
// pkg/config builtin+overlay pattern.
package registry

import "strings"

// CourtType classifies a court entry.
type CourtType string

const (
	CourtTypeAppellate CourtType = "appellate"
	CourtTypeTrial     CourtType = "trial"
	CourtTypeSpecialty CourtType = "specialty"
)

// Court is one CourtRegistry entry (spec.md §3).
type Court struct {
	JurisdictionID string    `yaml:"jurisdiction_id"`
	Name           string    `yaml:"name"`
	Aliases        []string  `yaml:"aliases"`
	ParentID       string    `yaml:"parent_id,omitempty"`
	Type           CourtType `yaml:"type"`

	// CaseNumberPrefixes are substring patterns (e.g. "txed", "e.d. tex.")
	// matched against a record's case_number by the court stage's step 4.
	CaseNumberPrefixes []string `yaml:"case_number_prefixes,omitempty"`
}

// CourtRegistry is the read-only, case-insensitive lookup table over Court
// entries.
type CourtRegistry struct {
	byID          map[string]Court
	byNameOrAlias map[string]Court
	prefixOrder   []prefixEntry
}

type prefixEntry struct {
	prefix  string
	jurisID string
}

// NewCourtRegistry builds a registry from a list of courts. Construction is
// the only mutation; the returned value is safe for concurrent read-only use
// for the lifetime of the process.
func NewCourtRegistry(courts []Court) *CourtRegistry {
	reg := &CourtRegistry{
		byID:          make(map[string]Court, len(courts)),
		byNameOrAlias: make(map[string]Court, len(courts)*2),
	}
	for _, c := range courts {
		reg.byID[c.JurisdictionID] = c
		reg.byNameOrAlias[normalizeName(c.Name)] = c
		for _, alias := range c.Aliases {
			reg.byNameOrAlias[normalizeName(alias)] = c
		}
		for _, prefix := range c.CaseNumberPrefixes {
			reg.prefixOrder = append(reg.prefixOrder, prefixEntry{
				prefix:  strings.ToLower(prefix),
				jurisID: c.JurisdictionID,
			})
		}
	}
	return reg
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ByID returns the court with the given exact jurisdiction id.
func (r *CourtRegistry) ByID(id string) (Court, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// ByNameOrAlias performs a case-insensitive exact match against the court's
// canonical name, then its aliases.
func (r *CourtRegistry) ByNameOrAlias(name string) (Court, bool) {
	c, ok := r.byNameOrAlias[normalizeName(name)]
	return c, ok
}

// ByCaseNumberPrefix resolves a court from a leading district abbreviation
// embedded in a case number (spec.md §4.3, step 4). It is a substring match,
// not an exact one — case numbers carry the prefix amid other punctuation —
// and the first configured prefix that appears anywhere in the (lowercased)
// case number wins.
func (r *CourtRegistry) ByCaseNumberPrefix(caseNumber string) (Court, bool) {
	lower := strings.ToLower(caseNumber)
	for _, entry := range r.prefixOrder {
		if strings.Contains(lower, entry.prefix) {
			c := r.byID[entry.jurisID]
			return c, true
		}
	}
	return Court{}, false
}

// ScanContent finds the first occurrence of a known court name within the
// opening window characters of content (spec.md §4.3, step 5). Returns the
// court whose name or alias starts at the earliest byte offset, and whether
// any matched (registry iteration order doesn't matter for content scans
// that contain exactly one name).
func (r *CourtRegistry) ScanContent(content string, window int) (Court, bool) {
	if window > 0 && window < len(content) {
		content = content[:window]
	}
	lower := strings.ToLower(content)

	var (
		best       Court
		found      bool
		bestOffset = len(lower) + 1
	)
	for name, c := range r.byNameOrAlias {
		if idx := strings.Index(lower, name); idx >= 0 && idx < bestOffset {
			best = c
			bestOffset = idx
			found = true
		}
	}
	return best, found
}

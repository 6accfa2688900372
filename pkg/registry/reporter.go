package registry

import "strings"

// Reporter is one ReporterRegistry entry (spec.md §3). Edition carries the
// series qualifier ("", "2d", "3d", ...) so that "F.3d" and "F." resolve to
// distinct entries sharing a base reporter.
type Reporter struct {
	Abbrev        string `yaml:"abbrev"`
	CanonicalName string `yaml:"canonical_name"`
	FullName      string `yaml:"full_name"`
	BaseReporter  string `yaml:"base_reporter"`
	Edition       string `yaml:"edition,omitempty"`
}

// ReporterRegistry resolves raw citation abbreviations to their canonical
// form, case- and punctuation-insensitively.
type ReporterRegistry struct {
	byAbbrev map[string]Reporter
}

// NewReporterRegistry builds a registry from a list of reporter editions.
func NewReporterRegistry(reporters []Reporter) *ReporterRegistry {
	reg := &ReporterRegistry{byAbbrev: make(map[string]Reporter, len(reporters))}
	for _, r := range reporters {
		reg.byAbbrev[normalizeAbbrev(r.Abbrev)] = r
	}
	return reg
}

// normalizeAbbrev strips periods and spaces and lowercases, so "F. 3d",
// "F.3d" and "f3d" all key to the same entry.
func normalizeAbbrev(abbrev string) string {
	s := strings.ToLower(abbrev)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// Resolve looks up a raw reporter abbreviation. ok is false for an unknown
// abbreviation; callers must then pass it through unchanged with
// normalized=false (spec.md §4.5).
func (r *ReporterRegistry) Resolve(abbrev string) (Reporter, bool) {
	rep, ok := r.byAbbrev[normalizeAbbrev(abbrev)]
	return rep, ok
}

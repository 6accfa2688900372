package registry

import "strings"

// JudgeInitialsEntry is one JudgeInitialsMap entry (spec.md §3), scoped to a
// single jurisdiction — the same initials can mean different judges in
// different courts.
type JudgeInitialsEntry struct {
	Initials       string `yaml:"initials"`
	JurisdictionID string `yaml:"jurisdiction_id"`
	FullName       string `yaml:"full_name"`
}

// JudgeInitialsMap resolves (initials, jurisdiction) pairs to a full judge
// name.
type JudgeInitialsMap struct {
	byKey map[string]string
}

func initialsKey(initials, jurisdictionID string) string {
	return strings.ToUpper(strings.TrimSpace(initials)) + "|" + jurisdictionID
}

// NewJudgeInitialsMap builds a map from a list of entries.
func NewJudgeInitialsMap(entries []JudgeInitialsEntry) *JudgeInitialsMap {
	m := &JudgeInitialsMap{byKey: make(map[string]string, len(entries))}
	for _, e := range entries {
		m.byKey[initialsKey(e.Initials, e.JurisdictionID)] = e.FullName
	}
	return m
}

// Resolve looks up initials scoped to a jurisdiction. spec.md §4.6 requires
// the jurisdiction to already be known before this is attempted.
func (m *JudgeInitialsMap) Resolve(initials, jurisdictionID string) (string, bool) {
	name, ok := m.byKey[initialsKey(initials, jurisdictionID)]
	return name, ok
}

// LooksLikeInitials reports whether a string has the shape of a judge
// initials code: two to four letters.
func LooksLikeInitials(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

package registry

// builtinCourts seeds CourtRegistry with enough real federal districts to run
// the pipeline without an external registry file, analogous to the teacher's
// pkg/config/builtin.go built-in agent catalog.
func builtinCourts() []Court {
	return []Court{
		{
			JurisdictionID:     "txed",
			Name:               "Eastern District of Texas",
			Aliases:            []string{"e.d. tex.", "eastern district of texas", "u.s. district court for the eastern district of texas"},
			Type:               CourtTypeTrial,
			CaseNumberPrefixes: []string{"txed", "e.d. tex.", "2:22-cv", "2:21-cv"},
		},
		{
			JurisdictionID:     "cafc",
			Name:               "United States Court of Appeals for the Federal Circuit",
			Aliases:            []string{"federal circuit", "fed. cir."},
			Type:               CourtTypeAppellate,
			CaseNumberPrefixes: []string{"cafc"},
		},
		{
			JurisdictionID:     "ded",
			Name:               "District of Delaware",
			Aliases:            []string{"d. del.", "district of delaware"},
			Type:               CourtTypeTrial,
			CaseNumberPrefixes: []string{"ded", "d. del."},
		},
		{
			JurisdictionID:     "cand",
			Name:               "Northern District of California",
			Aliases:            []string{"n.d. cal.", "northern district of california"},
			Type:               CourtTypeTrial,
			CaseNumberPrefixes: []string{"cand", "n.d. cal."},
		},
		{
			JurisdictionID:     "scotus",
			Name:               "Supreme Court of the United States",
			Aliases:            []string{"supreme court", "u.s. supreme court"},
			Type:               CourtTypeAppellate,
			CaseNumberPrefixes: []string{"scotus"},
		},
	}
}

// builtinReporters seeds ReporterRegistry with common federal reporters and
// their edition families.
func builtinReporters() []Reporter {
	return []Reporter{
		{Abbrev: "F.", CanonicalName: "F.", FullName: "Federal Reporter", BaseReporter: "F"},
		{Abbrev: "F.2d", CanonicalName: "F.2d", FullName: "Federal Reporter, Second Series", BaseReporter: "F", Edition: "2d"},
		{Abbrev: "F.3d", CanonicalName: "F.3d", FullName: "Federal Reporter, Third Series", BaseReporter: "F", Edition: "3d"},
		{Abbrev: "F. Supp.", CanonicalName: "F. Supp.", FullName: "Federal Supplement", BaseReporter: "F. Supp."},
		{Abbrev: "F. Supp. 2d", CanonicalName: "F. Supp. 2d", FullName: "Federal Supplement, Second Series", BaseReporter: "F. Supp.", Edition: "2d"},
		{Abbrev: "F. Supp. 3d", CanonicalName: "F. Supp. 3d", FullName: "Federal Supplement, Third Series", BaseReporter: "F. Supp.", Edition: "3d"},
		{Abbrev: "U.S.", CanonicalName: "U.S.", FullName: "United States Reports", BaseReporter: "U.S."},
		{Abbrev: "S. Ct.", CanonicalName: "S. Ct.", FullName: "Supreme Court Reporter", BaseReporter: "S. Ct."},
	}
}

// builtinJudgeInitials seeds JudgeInitialsMap with a small illustrative set.
func builtinJudgeInitials() []JudgeInitialsEntry {
	return []JudgeInitialsEntry{
		{Initials: "RG", JurisdictionID: "txed", FullName: "Rodney Gilstrap"},
		{Initials: "ADA", JurisdictionID: "ded", FullName: "Alan D. Albright"},
		{Initials: "LAK", JurisdictionID: "cand", FullName: "Lucy A. Koh"},
	}
}

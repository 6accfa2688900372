package docmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// emptyContentSentinel is the content hash of absent content (spec.md §4.9).
const emptyContentSentinel = "empty-content"

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace to a single space and
// trims the ends, so that changing only whitespace in content never changes
// its hash (spec.md §8, property 8).
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// ContentHash computes the whitespace-normalized content hash used both by
// Fingerprint and by StoredRecord.ContentHash.
func ContentHash(content string) string {
	normalized := NormalizeWhitespace(content)
	if normalized == "" {
		return emptyContentSentinel
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeCaseNumber is the normalization applied to case numbers before
// they participate in a Fingerprint, so that cosmetic differences (case,
// surrounding space) don't split what is really the same case.
func NormalizeCaseNumber(caseNumber string) string {
	return strings.ToLower(strings.TrimSpace(caseNumber))
}

// ComputeFingerprint derives the dedup key from spec.md §4.9:
// hash(source_id ∥ normalize(case_number) ∥ content_hash). source_id must
// already be populated (via SynthesizeIDs) by the time this is called.
func ComputeFingerprint(sourceID, caseNumber, content string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeCaseNumber(caseNumber)))
	h.Write([]byte{0})
	h.Write([]byte(ContentHash(content)))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

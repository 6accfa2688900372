// Package source implements DocumentSource: the HTTP-backed upstream the
// pipeline fetches RawRecords and document bodies from (spec.md §6), plus
// the PDF extractor client and the paid-source fulfillment flow.
package source

import (
	"context"
	"time"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// Filter narrows a Fetch call (spec.md §6).
type Filter struct {
	JurisdictionIDs []string
	DateStart       time.Time // inclusive
	DateEnd         time.Time // exclusive
	KindSelector    string
	NatureOfAction  []string
	Query           string
	MaxRecords      int
	Cursor          string // opaque pagination token; empty for the first page
}

// Page is one Fetch response.
type Page struct {
	Records       []docmodel.RawRecord
	NextCursor    string // empty when there are no more pages
	RateRemaining int
}

// BodySentinel marks a body that exists but requires a paid-source
// purchase before it can be read (spec.md §6 fetch_body).
const BodySentinel = "__must_purchase__"

// DocumentSource is the upstream the pipeline consumes records from.
type DocumentSource interface {
	// Fetch yields one page of RawRecords matching filter.
	Fetch(ctx context.Context, filter Filter) (Page, error)
	// FetchBody returns rec's textual body, or BodySentinel if it must be
	// purchased from a paid source first.
	FetchBody(ctx context.Context, rec docmodel.RawRecord) (string, error)
	// FetchPDF returns the raw PDF bytes behind rec.PDFReference, for
	// records whose body is only available as a scanned/native PDF. The
	// caller runs these bytes through a PDFExtractor (a separate external
	// collaborator, spec.md §6) rather than this source.
	FetchPDF(ctx context.Context, pdfReference string) ([]byte, error)
}

// PDFExtractor turns PDF bytes into text (spec.md §6).
type PDFExtractor interface {
	ExtractText(ctx context.Context, pdf []byte) (ExtractResult, error)
}

// ExtractResult is what PDFExtractor.ExtractText returns.
type ExtractResult struct {
	Text      string
	PageCount int
	Method    string // "native" or "ocr"
}

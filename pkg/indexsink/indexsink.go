// Package indexsink hands enriched documents off to the vector-index
// ingestion endpoint (spec.md §6): the last stop for a record once
// Persistence has durably accepted it.
package indexsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/courtlens/enrichpipe/pkg/assembler"
	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// Document is one entry in an IndexSink batch. Metadata is flattened so the
// index can facet on it directly, per spec.md §6.
type Document struct {
	InternalID string         `json:"internal_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

// FromStoredRecord builds the faceting-friendly Document the index wants:
// original upstream metadata plus the summary flags, flattened to one level
// (spec.md §6). The full nested enrichments detail stays in Persistence —
// the index only needs what's useful to filter and facet on.
func FromStoredRecord(rec docmodel.StoredRecord) Document {
	metadata := make(map[string]any, len(rec.MetadataBlob)+2)
	for k, v := range rec.MetadataBlob {
		if k == assembler.EnrichmentsKey {
			continue
		}
		if k == assembler.SummaryKey {
			if summary, ok := v.(map[string]any); ok {
				for sk, sv := range summary {
					metadata[sk] = sv
				}
			}
			continue
		}
		metadata[k] = v
	}
	metadata["kind"] = string(rec.Kind)
	metadata["case_number"] = rec.CaseNumber
	if rec.JurisdictionID != nil {
		metadata["jurisdiction_id"] = *rec.JurisdictionID
	}

	return Document{
		InternalID: rec.InternalID,
		Content:    rec.Content,
		Metadata:   metadata,
	}
}

// IndexSink hands a batch of documents to the search index.
type IndexSink interface {
	Index(ctx context.Context, docs []Document) error
}

// HTTPIndexSink posts documents as a bare JSON array, per spec.md §6
// ("accepts a list of documents as its payload directly, not wrapped in an
// object").
type HTTPIndexSink struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewHTTPIndexSink builds an HTTPIndexSink against baseURL.
func NewHTTPIndexSink(baseURL, token string) *HTTPIndexSink {
	return &HTTPIndexSink{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// Index implements IndexSink.
func (s *HTTPIndexSink) Index(ctx context.Context, docs []Document) error {
	body, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encoding index batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/documents", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling index sink: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("index sink returned HTTP %d", resp.StatusCode)
	}
	return nil
}

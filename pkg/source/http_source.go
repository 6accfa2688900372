package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// HTTPSource is the production DocumentSource: an HTTP client against a
// configured base URL, grounded on pkg/runbook/github.go's bearer-token
// client shape.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// NewHTTPSource builds an HTTPSource. token may be empty for sources that
// don't require auth.
func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
		logger:     slog.Default(),
	}
}

func (s *HTTPSource) setAuthHeader(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

type fetchResponsePayload struct {
	Records       []docmodel.RawRecord `json:"records"`
	NextCursor    string                `json:"next_cursor"`
	RateRemaining int                   `json:"rate_remaining"`
}

// Fetch implements DocumentSource.
func (s *HTTPSource) Fetch(ctx context.Context, filter Filter) (Page, error) {
	q := url.Values{}
	for _, j := range filter.JurisdictionIDs {
		q.Add("jurisdiction_id", j)
	}
	if !filter.DateStart.IsZero() {
		q.Set("date_start", filter.DateStart.Format(time.RFC3339))
	}
	if !filter.DateEnd.IsZero() {
		q.Set("date_end", filter.DateEnd.Format(time.RFC3339))
	}
	if filter.KindSelector != "" {
		q.Set("kind", filter.KindSelector)
	}
	for _, n := range filter.NatureOfAction {
		q.Add("nature_of_action", n)
	}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}
	if filter.MaxRecords > 0 {
		q.Set("max_records", strconv.Itoa(filter.MaxRecords))
	}
	if filter.Cursor != "" {
		q.Set("cursor", filter.Cursor)
	}

	reqURL := s.baseURL + "/records?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("%w: building fetch request: %v", docmodel.ErrSourceUnavailable, err)
	}
	s.setAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", docmodel.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("%w: source returned HTTP %d", docmodel.ErrSourceUnavailable, resp.StatusCode)
	}

	var payload fetchResponsePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Page{}, fmt.Errorf("%w: decoding fetch response: %v", docmodel.ErrSourceUnavailable, err)
	}

	s.logger.Debug("fetched page", "count", len(payload.Records), "rate_remaining", payload.RateRemaining)

	return Page{
		Records:       payload.Records,
		NextCursor:    payload.NextCursor,
		RateRemaining: payload.RateRemaining,
	}, nil
}

type fetchBodyResponsePayload struct {
	Body         string `json:"body"`
	MustPurchase bool   `json:"must_purchase"`
}

// FetchBody implements DocumentSource.
func (s *HTTPSource) FetchBody(ctx context.Context, rec docmodel.RawRecord) (string, error) {
	reqURL := fmt.Sprintf("%s/records/%s/body", s.baseURL, url.PathEscape(rec.SourceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: building body request: %v", docmodel.ErrSourceUnavailable, err)
	}
	s.setAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", docmodel.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return BodySentinel, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: source returned HTTP %d for body", docmodel.ErrSourceUnavailable, resp.StatusCode)
	}

	var payload fetchBodyResponsePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decoding body response: %v", docmodel.ErrSourceUnavailable, err)
	}
	if payload.MustPurchase {
		return BodySentinel, nil
	}
	return payload.Body, nil
}

// FetchPDF implements DocumentSource.
func (s *HTTPSource) FetchPDF(ctx context.Context, pdfReference string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/pdfs/%s", s.baseURL, url.PathEscape(pdfReference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building PDF request: %v", docmodel.ErrSourceUnavailable, err)
	}
	s.setAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docmodel.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: source returned HTTP %d for PDF", docmodel.ErrSourceUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF bytes: %v", docmodel.ErrSourceUnavailable, err)
	}
	return data, nil
}

// HTTPPDFExtractor calls an external PDF-to-text service.
type HTTPPDFExtractor struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPPDFExtractor builds an HTTPPDFExtractor against baseURL.
func NewHTTPPDFExtractor(baseURL string) *HTTPPDFExtractor {
	return &HTTPPDFExtractor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

type extractResponsePayload struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
	Method    string `json:"method"`
}

// ExtractText implements PDFExtractor.
func (e *HTTPPDFExtractor) ExtractText(ctx context.Context, pdf []byte) (ExtractResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract", bytes.NewReader(pdf))
	if err != nil {
		return ExtractResult{}, fmt.Errorf("building extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("calling PDF extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return ExtractResult{}, fmt.Errorf("PDF extractor returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload extractResponsePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ExtractResult{}, fmt.Errorf("decoding extract response: %w", err)
	}

	return ExtractResult{Text: payload.Text, PageCount: payload.PageCount, Method: payload.Method}, nil
}

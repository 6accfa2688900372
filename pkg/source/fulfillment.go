package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// OriginPurchased marks a RawRecord that re-entered the pipeline after a
// paid-source fulfillment completed (spec.md §9).
const OriginPurchased = "purchased"

// PurchaseRequest asks the paid source to fulfill one record asynchronously.
type PurchaseRequest struct {
	SourceID    string
	CallbackURL string
}

// FulfillmentClient is the named interface to the paid-source fulfillment
// queue: request-now, completion-later. The pipeline never polls it.
type FulfillmentClient interface {
	RequestPurchase(ctx context.Context, req PurchaseRequest) error
}

// HTTPFulfillmentClient posts purchase requests to a configured endpoint.
type HTTPFulfillmentClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewHTTPFulfillmentClient builds an HTTPFulfillmentClient.
func NewHTTPFulfillmentClient(baseURL, token string) *HTTPFulfillmentClient {
	return &HTTPFulfillmentClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

type purchaseRequestPayload struct {
	SourceID    string `json:"source_id"`
	CallbackURL string `json:"callback_url"`
}

// RequestPurchase implements FulfillmentClient.
func (c *HTTPFulfillmentClient) RequestPurchase(ctx context.Context, req PurchaseRequest) error {
	body, err := json.Marshal(purchaseRequestPayload{SourceID: req.SourceID, CallbackURL: req.CallbackURL})
	if err != nil {
		return fmt.Errorf("encoding purchase request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/purchase", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building purchase request: %v", docmodel.ErrSourceUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", docmodel.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: fulfillment queue returned HTTP %d", docmodel.ErrSourceUnavailable, resp.StatusCode)
	}
	return nil
}

// Budget tracks the run-level paid-source cost budget (spec.md §9 budget
// error). It is the only gate on whether a purchase attempt is made — once
// exhausted, every subsequent attempt is skipped with reason=budget_exhausted
// rather than attempted and failed.
type Budget struct {
	mu        sync.Mutex
	remaining float64
}

// NewBudget starts a Budget with the given cost ceiling, in the paid
// source's currency units.
func NewBudget(limit float64) *Budget {
	return &Budget{remaining: limit}
}

// Reserve attempts to deduct cost from the remaining budget. It reports
// false, leaving the budget untouched, when cost would exceed what remains.
func (b *Budget) Reserve(cost float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cost > b.remaining {
		return false
	}
	b.remaining -= cost
	return true
}

// Remaining reports the current budget balance.
func (b *Budget) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// FulfillmentCallback is the body of the paid source's completion callback,
// as decoded by the POST /fulfillment/callback handler in pkg/apihttp.
type FulfillmentCallback struct {
	SourceID string         `json:"source_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// ToRawRecord converts a completed fulfillment callback into a fresh
// RawRecord tagged origin=purchased (spec.md §9). Only SourceID, Content,
// Metadata and Origin are set; InternalID is left empty.
func (cb FulfillmentCallback) ToRawRecord() docmodel.RawRecord {
	metadata := make(map[string]any, len(cb.Metadata))
	for k, v := range cb.Metadata {
		metadata[k] = v
	}

	return docmodel.RawRecord{
		SourceID: cb.SourceID,
		Content:  cb.Content,
		Metadata: metadata,
		Origin:   OriginPurchased,
	}
}

package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFulfillmentClient_RequestPurchase(t *testing.T) {
	t.Run("accepted purchase returns no error", func(t *testing.T) {
		var gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf, _ := io.ReadAll(r.Body)
			gotBody = string(buf)
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		client := NewHTTPFulfillmentClient(server.URL, "tok")
		err := client.RequestPurchase(context.Background(), PurchaseRequest{
			SourceID:    "s1",
			CallbackURL: "https://pipeline.example/callback",
		})
		require.NoError(t, err)
		assert.Contains(t, gotBody, "s1")
		assert.Contains(t, gotBody, "callback")
	})

	t.Run("non-2xx is a source error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewHTTPFulfillmentClient(server.URL, "")
		err := client.RequestPurchase(context.Background(), PurchaseRequest{SourceID: "s1"})
		require.Error(t, err)
	})
}

func TestBudget_ReserveStopsAtLimit(t *testing.T) {
	budget := NewBudget(10.0)

	require.True(t, budget.Reserve(4.0))
	require.True(t, budget.Reserve(4.0))
	assert.Equal(t, 2.0, budget.Remaining())

	require.False(t, budget.Reserve(3.0), "a reservation exceeding what remains must be refused")
	assert.Equal(t, 2.0, budget.Remaining(), "a refused reservation must not deduct")

	require.True(t, budget.Reserve(2.0))
	assert.Equal(t, 0.0, budget.Remaining())
}

func TestFulfillmentCallback_ToRawRecord(t *testing.T) {
	cb := FulfillmentCallback{
		SourceID: "s1",
		Content:  "the purchased opinion text",
		Metadata: map[string]any{"court": "txed"},
	}
	rec := cb.ToRawRecord()

	assert.Equal(t, "s1", rec.SourceID)
	assert.Equal(t, "the purchased opinion text", rec.Content)
	assert.Equal(t, OriginPurchased, rec.Origin)
	assert.Equal(t, "txed", rec.Metadata["court"])
}

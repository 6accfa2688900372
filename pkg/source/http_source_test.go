package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

func rawRecordWithSourceID(id string) docmodel.RawRecord {
	return docmodel.RawRecord{SourceID: id}
}

func TestHTTPSource_Fetch(t *testing.T) {
	t.Run("parses records and rate_remaining", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"records":[{"source_id":"s1","internal_id":"i1"}],"next_cursor":"abc","rate_remaining":42}`))
		}))
		defer server.Close()

		src := NewHTTPSource(server.URL, "")
		page, err := src.Fetch(context.Background(), Filter{MaxRecords: 10})
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.Equal(t, "s1", page.Records[0].SourceID)
		assert.Equal(t, "abc", page.NextCursor)
		assert.Equal(t, 42, page.RateRemaining)
	})

	t.Run("bearer token sent when configured", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"records":[]}`))
		}))
		defer server.Close()

		src := NewHTTPSource(server.URL, "secret-token")
		_, err := src.Fetch(context.Background(), Filter{})
		require.NoError(t, err)
		assert.Equal(t, "Bearer secret-token", gotAuth)
	})

	t.Run("non-200 status is a source error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		src := NewHTTPSource(server.URL, "")
		_, err := src.Fetch(context.Background(), Filter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("cursor and filter fields are forwarded as query params", func(t *testing.T) {
		var gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"records":[]}`))
		}))
		defer server.Close()

		src := NewHTTPSource(server.URL, "")
		_, err := src.Fetch(context.Background(), Filter{Cursor: "page2", KindSelector: "order"})
		require.NoError(t, err)
		assert.Contains(t, gotQuery, "cursor=page2")
		assert.Contains(t, gotQuery, "kind=order")
	})
}

func TestHTTPSource_FetchBody(t *testing.T) {
	t.Run("returns body text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"body":"the opinion text"}`))
		}))
		defer server.Close()

		src := NewHTTPSource(server.URL, "")
		body, err := src.FetchBody(context.Background(), rawRecordWithSourceID("s1"))
		require.NoError(t, err)
		assert.Equal(t, "the opinion text", body)
	})

	t.Run("HTTP 402 signals must-purchase sentinel", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
		}))
		defer server.Close()

		src := NewHTTPSource(server.URL, "")
		body, err := src.FetchBody(context.Background(), rawRecordWithSourceID("s1"))
		require.NoError(t, err)
		assert.Equal(t, BodySentinel, body)
	})

	t.Run("must_purchase flag in a 200 body also signals the sentinel", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"must_purchase":true}`))
		}))
		defer server.Close()

		src := NewHTTPSource(server.URL, "")
		body, err := src.FetchBody(context.Background(), rawRecordWithSourceID("s1"))
		require.NoError(t, err)
		assert.Equal(t, BodySentinel, body)
	})
}

func TestHTTPSource_FetchPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("%PDF-1.4 raw bytes"))
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL, "")
	data, err := src.FetchPDF(context.Background(), "ref-123")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 raw bytes", string(data))
}

func TestHTTPPDFExtractor_ExtractText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"text":"extracted text","page_count":3,"method":"native"}`))
	}))
	defer server.Close()

	extractor := NewHTTPPDFExtractor(server.URL)
	result, err := extractor.ExtractText(context.Background(), []byte("%PDF-1.4..."))
	require.NoError(t, err)
	assert.Equal(t, "extracted text", result.Text)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, "native", result.Method)
}

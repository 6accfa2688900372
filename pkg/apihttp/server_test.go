package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlens/enrichpipe/pkg/report"
	"github.com/courtlens/enrichpipe/pkg/source"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(s *Server) *gin.Engine {
	router := gin.New()
	s.Routes(router)
	return router
}

func TestHandleHealth_NoDatabaseReportsHealthy(t *testing.T) {
	s := NewServer(nil, nil, nil)
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestHandleRunReport_NoRunYetReturns404(t *testing.T) {
	s := NewServer(nil, nil, nil)
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/run-report", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRunReport_ReturnsLastCompletedReport(t *testing.T) {
	done := make(chan struct{})
	trigger := func(ctx context.Context, filter source.Filter) (report.Report, error) {
		defer close(done)
		return report.Report{TotalAttempted: 3, New: 3}, nil
	}
	s := NewServer(nil, trigger, nil)
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("trigger never ran")
	}
	// allow the goroutine to finish writing lastReport after closing done
	time.Sleep(10 * time.Millisecond)

	req2 := httptest.NewRequest(http.MethodGet, "/run-report", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)

	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Contains(t, rec2.Body.String(), `"total_attempted":3`)
}

func TestHandleTriggerRun_RejectsConcurrentRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	trigger := func(ctx context.Context, filter source.Filter) (report.Report, error) {
		close(started)
		<-release
		return report.Report{}, nil
	}
	s := NewServer(nil, trigger, nil)
	router := newTestRouter(s)

	req1 := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte(`{}`)))
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusAccepted, rec1.Code)

	<-started

	req2 := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader([]byte(`{}`)))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusConflict, rec2.Code)

	close(release)
}

func TestHandleTriggerRun_InvalidDateIsBadRequest(t *testing.T) {
	s := NewServer(nil, func(ctx context.Context, filter source.Filter) (report.Report, error) {
		return report.Report{}, nil
	}, nil)
	router := newTestRouter(s)

	body, _ := json.Marshal(map[string]string{"date_start": "not-a-date"})
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTriggerRun_ParsesFilterFromRequestBody(t *testing.T) {
	var gotFilter source.Filter
	captured := make(chan struct{})
	trigger := func(ctx context.Context, filter source.Filter) (report.Report, error) {
		gotFilter = filter
		close(captured)
		return report.Report{}, nil
	}
	s := NewServer(nil, trigger, nil)
	router := newTestRouter(s)

	body, _ := json.Marshal(map[string]any{
		"jurisdiction_ids": []string{"txed", "ca9"},
		"max_records":      50,
		"query":            "negligence",
	})
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-captured:
	case <-time.After(time.Second):
		t.Fatal("trigger never ran")
	}

	assert.ElementsMatch(t, []string{"txed", "ca9"}, gotFilter.JurisdictionIDs)
	assert.Equal(t, 50, gotFilter.MaxRecords)
	assert.Equal(t, "negligence", gotFilter.Query)
}

func TestHandleFulfillmentCallback_AcceptsValidBody(t *testing.T) {
	s := NewServer(nil, nil, nil)
	router := newTestRouter(s)

	body, _ := json.Marshal(source.FulfillmentCallback{
		SourceID: "s-1",
		Content:  "full opinion text",
		Metadata: map[string]any{"court": "txed"},
	})
	req := httptest.NewRequest(http.MethodPost, "/fulfillment/callback", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleFulfillmentCallback_RejectsMalformedBody(t *testing.T) {
	s := NewServer(nil, nil, nil)
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/fulfillment/callback", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerRunRequest_ToFilter(t *testing.T) {
	req := triggerRunRequest{DateStart: "2026-01-01T00:00:00Z", DateEnd: "2026-02-01T00:00:00Z"}
	filter, err := req.toFilter()
	require.NoError(t, err)
	assert.False(t, filter.DateStart.IsZero())
	assert.False(t, filter.DateEnd.IsZero())
}

// Package apihttp is the Gin HTTP surface around the pipeline: health,
// the last run report, manual run triggers, and the paid-source fulfillment
// callback (SPEC_FULL.md AMBIENT STACK).
package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtlens/enrichpipe/pkg/report"
	"github.com/courtlens/enrichpipe/pkg/source"
	"github.com/courtlens/enrichpipe/pkg/store"
)

// RunTrigger starts one orchestrator run for the given filter and returns
// its report once complete. The server runs it in the background so the
// trigger endpoint responds immediately.
type RunTrigger func(ctx context.Context, filter source.Filter) (report.Report, error)

// Server is the HTTP surface. It holds the last completed run's report for
// the run-report endpoint and serializes manual-trigger requests so two
// runs never overlap.
type Server struct {
	db      *store.Client
	trigger RunTrigger
	logger  *slog.Logger

	mu         sync.Mutex
	running    bool
	lastReport *report.Report
	lastRunErr error
}

// NewServer builds a Server. db may be nil in tests that don't exercise the
// health endpoint's database check.
func NewServer(db *store.Client, trigger RunTrigger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{db: db, trigger: trigger, logger: logger}
}

// Routes registers every endpoint on router.
func (s *Server) Routes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)
	router.GET("/run-report", s.handleRunReport)
	router.POST("/runs", s.handleTriggerRun)
	router.POST("/fulfillment/callback", s.handleFulfillmentCallback)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}

	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health, err := store.Health(reqCtx, s.db.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": health, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": health})
}

func (s *Server) handleRunReport(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastReport == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has completed yet"})
		return
	}
	if s.lastRunErr != nil {
		c.JSON(http.StatusOK, gin.H{"report": s.lastReport, "run_error": s.lastRunErr.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": s.lastReport})
}

// triggerRunRequest is the manual-trigger request body. Every field mirrors
// source.Filter (spec.md §6), minus Cursor, which a fresh manual run always
// starts empty.
type triggerRunRequest struct {
	JurisdictionIDs []string `json:"jurisdiction_ids"`
	DateStart       string   `json:"date_start"`
	DateEnd         string   `json:"date_end"`
	KindSelector    string   `json:"kind_selector"`
	NatureOfAction  []string `json:"nature_of_action"`
	Query           string   `json:"query"`
	MaxRecords      int      `json:"max_records"`
}

func (req triggerRunRequest) toFilter() (source.Filter, error) {
	filter := source.Filter{
		JurisdictionIDs: req.JurisdictionIDs,
		KindSelector:    req.KindSelector,
		NatureOfAction:  req.NatureOfAction,
		Query:           req.Query,
		MaxRecords:      req.MaxRecords,
	}
	if req.DateStart != "" {
		start, err := time.Parse(time.RFC3339, req.DateStart)
		if err != nil {
			return filter, err
		}
		filter.DateStart = start
	}
	if req.DateEnd != "" {
		end, err := time.Parse(time.RFC3339, req.DateEnd)
		if err != nil {
			return filter, err
		}
		filter.DateEnd = end
	}
	return filter, nil
}

func (s *Server) handleTriggerRun(c *gin.Context) {
	var req triggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter, err := req.toFilter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + err.Error()})
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		rep, err := s.trigger(context.Background(), filter)

		s.mu.Lock()
		s.lastReport = &rep
		s.lastRunErr = err
		s.mu.Unlock()

		rep.Log(s.logger)
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) handleFulfillmentCallback(c *gin.Context) {
	var cb source.FulfillmentCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The callback is converted to a RawRecord (Origin "purchased") and
	// logged. The record is not queued or handed to any run: nothing in the
	// Server passes it on to Orchestrator.Run.
	rec := cb.ToRawRecord()
	s.logger.Info("fulfillment callback received", "source_id", rec.SourceID, "origin", rec.Origin)

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

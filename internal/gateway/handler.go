package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/agents"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/casestore"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/inference"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/metrics"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/models"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// Handler handles HTTP requests for the analysis API
type Handler struct {
	registry  *Registry
	completer inference.Completer
	store     *casestore.Store
	metrics   *metrics.AnalysisMetrics

	pipelineOpts []pipeline.Option
}

// NewHandler creates a new analysis handler. The case store is optional;
// without it requests must carry the full case context inline.
func NewHandler(registry *Registry, completer inference.Completer, store *casestore.Store, analysisMetrics *metrics.AnalysisMetrics, opts ...pipeline.Option) *Handler {
	return &Handler{
		registry:     registry,
		completer:    completer,
		store:        store,
		metrics:      analysisMetrics,
		pipelineOpts: opts,
	}
}

// AnalysisRequest represents an analysis request. Either a case ID to load
// from the case store, or the full case context inline. Inline fields
// override loaded ones.
type AnalysisRequest struct {
	CaseID        string                     `json:"caseId"`
	Description   string                     `json:"description"`
	CaseType      string                     `json:"caseType"`
	Jurisdiction  string                     `json:"jurisdiction"`
	Evidence      []pipeline.EvidenceSummary `json:"evidence"`
	PriorAnalysis string                     `json:"priorAnalysis"`
}

// AnalyzeCase godoc
// @Summary Run a case analysis
// @Description Execute the four-stage analysis pipeline synchronously and return the merged report
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body AnalysisRequest true "Case context"
// @Success 200 {object} pipeline.Result
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /analysis [post]
func (h *Handler) AnalyzeCase(c *gin.Context) {
	cc, ok := h.resolveContext(c)
	if !ok {
		return
	}

	run, ok := h.startRun(c, cc)
	if !ok {
		return
	}

	result, err := run.Orchestrator.Run(c.Request.Context(), cc)
	if err != nil {
		h.respondRunError(c, run, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AsyncResponse acknowledges an asynchronous analysis start.
type AsyncResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// StartAnalysisAsync godoc
// @Summary Start a case analysis
// @Description Start the analysis pipeline in the background; poll or stream for progress
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body AnalysisRequest true "Case context"
// @Success 202 {object} AsyncResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /analysis/async [post]
func (h *Handler) StartAnalysisAsync(c *gin.Context) {
	cc, ok := h.resolveContext(c)
	if !ok {
		return
	}

	run, ok := h.startRun(c, cc)
	if !ok {
		return
	}

	go func() {
		// The run outlives the HTTP request that started it.
		if _, err := run.Orchestrator.Run(context.Background(), cc); err != nil {
			log.Printf(`{"level":"error","message":"Analysis run failed","run_id":"%s","error":"%v"}`,
				run.Orchestrator.RunID(), err)
		}
	}()

	c.JSON(http.StatusAccepted, AsyncResponse{
		RunID:  run.Orchestrator.RunID().String(),
		Status: string(pipeline.StatusRunning),
	})
}

// GetAnalysis godoc
// @Summary Get analysis run state
// @Description Return the current snapshot of an analysis run
// @Tags analysis
// @Produce json
// @Param run_id path string true "Run ID"
// @Success 200 {object} pipeline.RunSnapshot
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /analysis/{run_id} [get]
func (h *Handler) GetAnalysis(c *gin.Context) {
	run, ok := h.registry.Get(c.Param("run_id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Analysis run not found",
			Code:  models.ErrCodeNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, run.Orchestrator.Snapshot())
}

// CancelAnalysis godoc
// @Summary Cancel an analysis run
// @Description Request cancellation of a running analysis; idempotent
// @Tags analysis
// @Produce json
// @Param run_id path string true "Run ID"
// @Success 202 {object} pipeline.RunSnapshot
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /analysis/{run_id} [delete]
func (h *Handler) CancelAnalysis(c *gin.Context) {
	run, ok := h.registry.Get(c.Param("run_id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Analysis run not found",
			Code:  models.ErrCodeNotFound,
		})
		return
	}

	run.Orchestrator.Cancel()
	log.Printf(`{"level":"info","message":"Analysis cancellation requested","run_id":"%s"}`,
		run.Orchestrator.RunID())

	c.JSON(http.StatusAccepted, run.Orchestrator.Snapshot())
}

// resolveContext binds the request and builds the case context, loading the
// stored case when only a case ID is given. A false return means an error
// response was already written.
func (h *Handler) resolveContext(c *gin.Context) (pipeline.CaseContext, bool) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  models.ErrCodeInvalidRequest,
		})
		return pipeline.CaseContext{}, false
	}

	cc := pipeline.CaseContext{CaseID: req.CaseID}
	if req.CaseID != "" && h.store != nil {
		loaded, err := h.store.Snapshot(c.Request.Context(), req.CaseID)
		if err != nil {
			log.Printf(`{"level":"warn","message":"Failed to load case","case_id":"%s","error":"%v"}`, req.CaseID, err)
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "Case not found",
				Code:  models.ErrCodeNotFound,
			})
			return pipeline.CaseContext{}, false
		}
		cc = loaded
	}

	if strings.TrimSpace(req.Description) != "" {
		cc.Description = req.Description
	}
	if strings.TrimSpace(req.CaseType) != "" {
		cc.CaseType = req.CaseType
	}
	if strings.TrimSpace(req.Jurisdiction) != "" {
		cc.Jurisdiction = req.Jurisdiction
	}
	if len(req.Evidence) > 0 {
		cc.Evidence = req.Evidence
	}
	if strings.TrimSpace(req.PriorAnalysis) != "" {
		cc.PriorAnalysis = req.PriorAnalysis
	}

	if err := cc.Validate(); err != nil {
		var vErr *pipeline.ValidationError
		details := map[string]string{}
		if errors.As(err, &vErr) {
			for _, field := range vErr.Missing {
				details[field] = "required"
			}
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   err.Error(),
			Code:    models.ErrCodeValidationFailed,
			Details: details,
		})
		return pipeline.CaseContext{}, false
	}

	return cc, true
}

// startRun creates and registers an orchestrator for the context and starts
// the event pump. A false return means an error response was already written.
func (h *Handler) startRun(c *gin.Context, cc pipeline.CaseContext) (*Run, bool) {
	orch, err := pipeline.NewOrchestrator(agents.NewExecutors(h.completer), h.pipelineOpts...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to create analysis pipeline",
			Code:  models.ErrCodeInternalError,
		})
		return nil, false
	}

	run := h.registry.Add(orch, cc.CaseType)
	h.metrics.RecordRunStarted(c.Request.Context(), cc.CaseType, cc.Jurisdiction)
	go h.pumpEvents(run)

	log.Printf(`{"level":"info","message":"Analysis run started","run_id":"%s","case_type":"%s","jurisdiction":"%s"}`,
		orch.RunID(), cc.CaseType, cc.Jurisdiction)

	return run, true
}

// pumpEvents drains the orchestrator's event stream, recording metrics and
// fanning events out to progress subscribers until the run terminates.
func (h *Handler) pumpEvents(run *Run) {
	ctx := context.Background()
	for event := range run.Orchestrator.Events() {
		switch event.Type {
		case pipeline.EventStageCompleted:
			if event.Result != nil {
				h.metrics.RecordStageDuration(ctx, string(event.Stage), time.Duration(event.Result.DurationMs)*time.Millisecond)
			}
		case pipeline.EventRunCompleted:
			snap := run.Orchestrator.Snapshot()
			h.metrics.RecordRunCompleted(ctx, run.CaseType, time.Duration(snap.TotalDurationMs)*time.Millisecond)
		case pipeline.EventRunFailed:
			h.metrics.RecordRunFailed(ctx, run.CaseType, string(event.Stage))
		case pipeline.EventRunCancelled:
			h.metrics.RecordRunCancelled(ctx, run.CaseType)
		}
		run.publish(event)
	}
	run.finish()
}

// respondRunError maps a pipeline error onto the API error contract.
func (h *Handler) respondRunError(c *gin.Context, run *Run, err error) {
	runID := run.Orchestrator.RunID().String()

	var stageErr *pipeline.StageError
	var assemblyErr *pipeline.AssemblyError
	var vErr *pipeline.ValidationError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
			Code:  models.ErrCodeValidationFailed,
		})
	case errors.Is(err, pipeline.ErrRunCancelled):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "Analysis run was cancelled",
			Code:    models.ErrCodeRunCancelled,
			Details: map[string]string{"runId": runID},
		})
	case errors.Is(err, pipeline.ErrRunActive), errors.Is(err, pipeline.ErrRunConsumed):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   err.Error(),
			Code:    models.ErrCodeRunActive,
			Details: map[string]string{"runId": runID},
		})
	case errors.As(err, &stageErr):
		log.Printf(`{"level":"error","message":"Stage failed","run_id":"%s","stage":"%s","error":"%v"}`,
			runID, stageErr.Role, stageErr.Err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   stageErr.Error(),
			Code:    models.ErrCodeStageFailed,
			Details: map[string]string{"runId": runID, "stage": string(stageErr.Role)},
		})
	case errors.As(err, &assemblyErr):
		log.Printf(`{"level":"error","message":"Report assembly failed","run_id":"%s","error":"%v"}`, runID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   assemblyErr.Error(),
			Code:    models.ErrCodeAssemblyFailed,
			Details: map[string]string{"runId": runID},
		})
	default:
		log.Printf(`{"level":"error","message":"Analysis run failed","run_id":"%s","error":"%v"}`, runID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Analysis run failed",
			Code:    models.ErrCodeInternalError,
			Details: map[string]string{"runId": runID},
		})
	}
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"codearena.app/arbiter/internal/http/dto"
	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/queue"
	"codearena.app/arbiter/internal/service"
	"codearena.app/arbiter/internal/store"
)

// EvaluationHandler enqueues pipeline work and serves the operator
// actions: retries and lifecycle advances.
type EvaluationHandler struct {
	producer  queue.Producer
	retry     *service.RetryService
	lifecycle *service.Lifecycle
	stores    *store.Stores
}

func NewEvaluationHandler(producer queue.Producer, retry *service.RetryService, lifecycle *service.Lifecycle, stores *store.Stores) *EvaluationHandler {
	return &EvaluationHandler{producer: producer, retry: retry, lifecycle: lifecycle, stores: stores}
}

func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	h.enqueue(c, queue.TaskTypeEvaluateRound1, nil)
}

func (h *EvaluationHandler) Round2(c *gin.Context) {
	var req dto.Round2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.enqueue(c, queue.TaskTypeEvaluateRound2, &req.CommunityScore)
}

func (h *EvaluationHandler) RefreshResearch(c *gin.Context) {
	h.enqueue(c, queue.TaskTypeRefreshResearch, nil)
}

func (h *EvaluationHandler) enqueue(c *gin.Context, taskType queue.TaskType, communityScore *float64) {
	ctx := c.Request.Context()

	id, ok := submissionID(c)
	if !ok {
		return
	}
	if _, err := h.stores.Submissions().GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load submission", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submission"})
		return
	}

	traceID := uuid.NewString()
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		traceID = spanCtx.TraceID().String()
	}

	task := queue.Task{
		TaskType:       taskType,
		SubmissionID:   id,
		TraceID:        &traceID,
		CommunityScore: communityScore,
	}
	if err := h.producer.Enqueue(ctx, task); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue task", "error", err, "task_type", taskType)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue task"})
		return
	}

	c.JSON(http.StatusAccepted, dto.EnqueueResponse{
		SubmissionID: id,
		TaskType:     string(taskType),
		TraceID:      traceID,
	})
}

func (h *EvaluationHandler) Retry(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := submissionID(c)
	if !ok {
		return
	}

	// The body is optional: only retries re-entering community voting
	// need a community score.
	var req dto.RetryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.retry.Retry(ctx, id, req.CommunityScore); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission state not found"})
			return
		}
		slog.WarnContext(ctx, "retry rejected", "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"submission_id": id, "retried": true})
}

// Advance moves a submission into an operator-driven state, opening
// community voting after Round 1 or publishing after Round 2.
func (h *EvaluationHandler) Advance(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := submissionID(c)
	if !ok {
		return
	}

	var req dto.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.lifecycle.Advance(ctx, id, model.SubmissionState(req.To)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission state not found"})
			return
		}
		slog.WarnContext(ctx, "advance rejected", "error", err, "to", req.To)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submission_id": id, "state": req.To})
}

func (h *EvaluationHandler) GetState(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := submissionID(c)
	if !ok {
		return
	}

	rec, err := h.stores.States().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission state not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load state"})
		return
	}

	resp := dto.StateResponse{
		SubmissionID:  rec.SubmissionID,
		State:         string(rec.State),
		FailureReason: rec.FailureReason,
		UpdatedAt:     rec.UpdatedAt,
	}
	if rec.FailedFrom != nil {
		from := string(*rec.FailedFrom)
		resp.FailedFrom = &from
	}
	c.JSON(http.StatusOK, resp)
}

func submissionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return 0, false
	}
	return id, true
}

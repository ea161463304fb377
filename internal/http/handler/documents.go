package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"codearena.app/arbiter/internal/store"
)

// DocumentsHandler serves the pipeline's persisted artifacts.
type DocumentsHandler struct {
	stores *store.Stores
}

func NewDocumentsHandler(stores *store.Stores) *DocumentsHandler {
	return &DocumentsHandler{stores: stores}
}

func (h *DocumentsHandler) GetAnalysis(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := submissionID(c)
	if !ok {
		return
	}

	analysis, err := h.stores.Analyses().LatestBySubmission(ctx, id)
	if err != nil {
		h.respondError(c, err, "analysis")
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *DocumentsHandler) GetResearch(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := submissionID(c)
	if !ok {
		return
	}

	doc, err := h.stores.Research().LatestBySubmission(ctx, id)
	if err != nil {
		h.respondError(c, err, "research")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentsHandler) GetScores(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := submissionID(c)
	if !ok {
		return
	}

	records, err := h.stores.Scores().ListBySubmission(ctx, id)
	if err != nil {
		h.respondError(c, err, "scores")
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no score records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission_id": id, "records": records})
}

func (h *DocumentsHandler) respondError(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	slog.ErrorContext(c.Request.Context(), "failed to load "+what, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load " + what})
}

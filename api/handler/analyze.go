package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lenshq/pagelens/models"
	"github.com/lenshq/pagelens/pipeline"
)

// Analyze returns a handler for POST /api/v1/analyze.
//
// Orchestration flow:
//  1. Parse request body.
//  2. Pipeline.Run — validate, open session, extract, infer, shape.
//  3. Assemble metadata (url, action, modelUsed, truncation, timing) and
//     return 200.
//
// Validation failures come back as 400 with a field-error list; every other
// failure category collapses to a uniform 500 envelope. Session release is
// guaranteed inside the pipeline before any error reaches this layer.
func Analyze(pipe *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AnalyzeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		// ── 2. Run pipeline ─────────────────────────────────────────
		result, err := pipe.Run(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Assemble response ────────────────────────────────────
		c.JSON(http.StatusOK, models.AnalyzeResponse{
			Success: true,
			Data:    &result.Data,
			Metadata: &models.Metadata{
				URL:             req.URL,
				Action:          req.Action,
				ModelUsed:       result.ModelUsed,
				Truncated:       result.Truncated,
				ExecutionTimeMs: time.Since(start).Milliseconds(),
				Usage:           result.Usage,
			},
		})
	}
}

// respondError maps an AnalyzeError to the right HTTP status and writes a
// structured JSON error response.
func respondError(c *gin.Context, err error) {
	analyzeErr, ok := err.(*models.AnalyzeError)
	if !ok {
		analyzeErr = models.NewAnalyzeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(analyzeErr), models.AnalyzeResponse{
		Success: false,
		Error:   analyzeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes. Runtime
// failures (session, navigation, selector, inference) all report 500: the
// caller can distinguish them by the error code in the envelope.
func mapErrorToStatus(e *models.AnalyzeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

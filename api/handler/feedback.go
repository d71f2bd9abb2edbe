package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lenshq/pagelens/models"
	"github.com/lenshq/pagelens/store"
)

// feedbackResponse wraps feedback operations in the common envelope.
type feedbackResponse struct {
	Success bool                   `json:"success"`
	Record  *models.FeedbackRecord `json:"record,omitempty"`
	Error   *models.ErrorDetail    `json:"error,omitempty"`
}

// PostFeedback returns a handler for POST /api/v1/feedback.
// Records are upserted by message ID.
func PostFeedback(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, feedbackResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if fieldErrs := req.Validate(); len(fieldErrs) > 0 {
			c.JSON(http.StatusBadRequest, feedbackResponse{
				Success: false,
				Error:   models.NewValidationError(fieldErrs).ToDetail(),
			})
			return
		}

		rec, err := st.SaveFeedback(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, feedbackResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInternal,
					Message: "failed to persist feedback",
				},
			})
			return
		}

		c.JSON(http.StatusOK, feedbackResponse{Success: true, Record: rec})
	}
}

// GetFeedback returns a handler for GET /api/v1/feedback/:messageId.
func GetFeedback(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageId")

		rec, err := st.GetFeedback(c.Request.Context(), messageID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, feedbackResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInternal,
					Message: "failed to load feedback",
				},
			})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, feedbackResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "no feedback for message " + messageID,
				},
			})
			return
		}

		c.JSON(http.StatusOK, feedbackResponse{Success: true, Record: rec})
	}
}

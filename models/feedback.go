package models

import "time"

// Feedback types accepted by POST /api/v1/feedback.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// FeedbackRequest is the payload for POST /api/v1/feedback.
type FeedbackRequest struct {
	// MessageID identifies the analysis result the feedback refers to. Required.
	MessageID string `json:"messageId"`

	// FeedbackType is "positive" or "negative". Required.
	FeedbackType string `json:"feedbackType"`

	// Comment is optional free text.
	Comment string `json:"comment,omitempty"`
}

// Validate type-checks the feedback request.
func (r *FeedbackRequest) Validate() []FieldError {
	var errs []FieldError
	if r.MessageID == "" {
		errs = append(errs, FieldError{Field: "messageId", Message: "messageId is required"})
	}
	switch r.FeedbackType {
	case FeedbackPositive, FeedbackNegative:
	case "":
		errs = append(errs, FieldError{Field: "feedbackType", Message: "feedbackType is required"})
	default:
		errs = append(errs, FieldError{Field: "feedbackType", Message: `feedbackType must be "positive" or "negative"`})
	}
	return errs
}

// FeedbackRecord is the persisted form of a feedback submission.
// Records are keyed by MessageID: resubmitting replaces the earlier record.
type FeedbackRecord struct {
	ID           string    `json:"id"`
	MessageID    string    `json:"messageId"`
	FeedbackType string    `json:"feedbackType"`
	Comment      string    `json:"comment,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

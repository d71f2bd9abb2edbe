package store

import (
	"context"
	"testing"

	"github.com/lenshq/pagelens/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.SaveFeedback(ctx, &models.FeedbackRequest{
		MessageID:    "msg-1",
		FeedbackType: models.FeedbackPositive,
		Comment:      "great summary",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.ID == "" {
		t.Error("record should get a generated ID")
	}
	if rec.Timestamp.IsZero() {
		t.Error("record should get a timestamp")
	}

	got, err := s.GetFeedback(ctx, "msg-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record")
	}
	if got.FeedbackType != models.FeedbackPositive || got.Comment != "great summary" {
		t.Errorf("got %+v", got)
	}
}

func TestSaveFeedback_ResubmitReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveFeedback(ctx, &models.FeedbackRequest{
		MessageID:    "msg-2",
		FeedbackType: models.FeedbackPositive,
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := s.SaveFeedback(ctx, &models.FeedbackRequest{
		MessageID:    "msg-2",
		FeedbackType: models.FeedbackNegative,
		Comment:      "changed my mind",
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.ID == first.ID {
		t.Error("replacement record should get a fresh ID")
	}

	got, err := s.GetFeedback(ctx, "msg-2")
	if err != nil {
		t.Fatal(err)
	}
	if got.FeedbackType != models.FeedbackNegative {
		t.Errorf("FeedbackType = %q, want the replacement to win", got.FeedbackType)
	}
	if got.Comment != "changed my mind" {
		t.Errorf("Comment = %q", got.Comment)
	}
}

func TestGetFeedback_Missing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetFeedback(context.Background(), "no-such-message")
	if err != nil {
		t.Fatalf("missing record should not be an error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

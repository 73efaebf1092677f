package audit

import (
	"context"
	"testing"
)

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "   ", nil); err == nil {
		t.Fatalf("expected error for empty event name")
	}
	if err := LogEvent(context.Background(), "session.login", map[string]any{"user": "h1"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
}

func TestContextEnrichment(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, "hunter-7")
	if got := requestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id: got %q", got)
	}
	if got := actorFromContext(ctx); got != "hunter-7" {
		t.Fatalf("actor: got %q", got)
	}
	// Blank values must not overwrite.
	ctx = WithRequestID(ctx, "  ")
	ctx = WithActor(ctx, "")
	if got := requestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id clobbered: %q", got)
	}
	if got := actorFromContext(ctx); got != "hunter-7" {
		t.Fatalf("actor clobbered: %q", got)
	}
}

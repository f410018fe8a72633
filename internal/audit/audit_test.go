package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifiesAndWritesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := NewLogger(zap.New(core))

	var got []Entry
	logger.SetNotifier(func(_ context.Context, entry Entry) {
		got = append(got, entry)
	})

	logger.Log(context.Background(), LevelInfo, "g1", "u1", EventUserBlocked, "spam")

	if len(got) != 1 || got[0].Event != EventUserBlocked || got[0].GuildID != "g1" {
		t.Fatalf("unexpected notifications %+v", got)
	}
	entries := logs.FilterMessage("audit").All()
	if len(entries) != 1 {
		t.Fatalf("expected one audit log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event"] != EventUserBlocked || fields["user_id"] != "u1" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var logger *Logger
	logger.Log(context.Background(), LevelWarn, "g1", "", EventThreadClosed, "")
}

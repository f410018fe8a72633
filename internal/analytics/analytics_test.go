package analytics

import (
	"context"
	"errors"
	"testing"

	"modmail-bridge/internal/backend"
)

type fakeSource struct {
	volumeErr error
}

func (f fakeSource) AnalyticsOverview(context.Context, string) (backend.AnalyticsOverview, error) {
	return backend.AnalyticsOverview{TotalThreads: 12, OpenThreads: 3}, nil
}

func (f fakeSource) ThreadVolume(context.Context, string) ([]backend.ThreadVolume, error) {
	if f.volumeErr != nil {
		return nil, f.volumeErr
	}
	return []backend.ThreadVolume{{Date: "2024-05-01", Count: 2}, {Date: "2024-05-02", Count: 7}, {Date: "2024-05-03", Count: 7}}, nil
}

func (f fakeSource) ModeratorActivity(context.Context, string) ([]backend.ModeratorActivity, error) {
	return []backend.ModeratorActivity{
		{ModeratorTag: "alice", MessageCount: 4, NoteCount: 1},
		{ModeratorTag: "bob", MessageCount: 3, NoteCount: 2, ThreadsClosed: 3},
	}, nil
}

func (f fakeSource) ResponseTimes(context.Context, string) (backend.ResponseTimes, error) {
	avg := 1.5
	return backend.ResponseTimes{AvgFirstResponseHours: &avg}, nil
}

func TestReportDerivesHighlights(t *testing.T) {
	report, err := New(fakeSource{}).Report(context.Background(), "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Overview.TotalThreads != 12 {
		t.Fatalf("expected overview, got %+v", report.Overview)
	}
	if report.BusiestDay == nil || report.BusiestDay.Date != "2024-05-02" {
		t.Fatalf("expected first busiest day, got %+v", report.BusiestDay)
	}
	if report.TopModerator == nil || report.TopModerator.ModeratorTag != "bob" {
		t.Fatalf("expected bob, got %+v", report.TopModerator)
	}
	if report.ResponseTimes.AvgFirstResponseHours == nil {
		t.Fatalf("expected response times")
	}
}

func TestReportFailsWhenAnyViewFails(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(fakeSource{volumeErr: boom}).Report(context.Background(), "g1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestHighlightsEmpty(t *testing.T) {
	if busiestDay(nil) != nil || topModerator([]backend.ModeratorActivity{{ModeratorTag: "idle"}}) != nil {
		t.Fatalf("expected no highlights")
	}
}

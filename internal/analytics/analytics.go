package analytics

import (
	"context"

	"modmail-bridge/internal/backend"

	"golang.org/x/sync/errgroup"
)

type Source interface {
	AnalyticsOverview(ctx context.Context, guildID string) (backend.AnalyticsOverview, error)
	ThreadVolume(ctx context.Context, guildID string) ([]backend.ThreadVolume, error)
	ModeratorActivity(ctx context.Context, guildID string) ([]backend.ModeratorActivity, error)
	ResponseTimes(ctx context.Context, guildID string) (backend.ResponseTimes, error)
}

type Service struct {
	source Source
}

func New(source Source) *Service {
	return &Service{source: source}
}

type Report struct {
	Overview      backend.AnalyticsOverview   `json:"overview"`
	ThreadVolume  []backend.ThreadVolume      `json:"thread_volume"`
	Moderators    []backend.ModeratorActivity `json:"moderator_activity"`
	ResponseTimes backend.ResponseTimes       `json:"response_times"`
	BusiestDay    *backend.ThreadVolume       `json:"busiest_day,omitempty"`
	TopModerator  *backend.ModeratorActivity  `json:"top_moderator,omitempty"`
}

// Report fetches the four analytics views concurrently; any failure fails the
// whole report.
func (s *Service) Report(ctx context.Context, guildID string) (Report, error) {
	var report Report
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		overview, err := s.source.AnalyticsOverview(ctx, guildID)
		report.Overview = overview
		return err
	})
	g.Go(func() error {
		volume, err := s.source.ThreadVolume(ctx, guildID)
		report.ThreadVolume = volume
		return err
	})
	g.Go(func() error {
		moderators, err := s.source.ModeratorActivity(ctx, guildID)
		report.Moderators = moderators
		return err
	})
	g.Go(func() error {
		times, err := s.source.ResponseTimes(ctx, guildID)
		report.ResponseTimes = times
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report.BusiestDay = busiestDay(report.ThreadVolume)
	report.TopModerator = topModerator(report.Moderators)
	return report, nil
}

func busiestDay(volume []backend.ThreadVolume) *backend.ThreadVolume {
	var best *backend.ThreadVolume
	for i := range volume {
		if volume[i].Count == 0 {
			continue
		}
		if best == nil || volume[i].Count > best.Count {
			best = &volume[i]
		}
	}
	return best
}

// Moderators are ranked by messages plus notes plus closures.
func topModerator(moderators []backend.ModeratorActivity) *backend.ModeratorActivity {
	var best *backend.ModeratorActivity
	bestScore := int64(0)
	for i := range moderators {
		score := moderators[i].MessageCount + moderators[i].NoteCount + moderators[i].ThreadsClosed
		if score == 0 {
			continue
		}
		if best == nil || score > bestScore {
			best = &moderators[i]
			bestScore = score
		}
	}
	return best
}

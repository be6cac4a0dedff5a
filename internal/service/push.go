package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"news_pusher/internal/domain"
)

// Limits bounds a single run.
type Limits struct {
	TopN       int
	MaxSeenIDs int
}

// PushService runs the fetch, parse, dedup, format, push and persist steps
// in order. Nothing is persisted unless the push succeeded.
type PushService struct {
	source    Source
	parser    Parser
	formatter Formatter
	pusher    Pusher
	state     StateStore
	publisher Publisher
	logger    *slog.Logger
	limits    Limits
	newRunID  func() string
}

func NewPushService(
	source Source,
	parser Parser,
	formatter Formatter,
	pusher Pusher,
	state StateStore,
	publisher Publisher,
	logger *slog.Logger,
	limits Limits,
) *PushService {
	return &PushService{
		source:    source,
		parser:    parser,
		formatter: formatter,
		pusher:    pusher,
		state:     state,
		publisher: publisher,
		logger:    logger,
		limits:    limits,
		newRunID:  uuid.NewString,
	}
}

// Run performs one pass. A fetch, push or state error aborts the run; a page
// that yields no items is not an error.
func (s *PushService) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := time.Now()
	stats := &domain.RunStats{RunID: s.newRunID()}
	logger := s.logger.With("run_id", stats.RunID)

	if s.limits.TopN <= 0 {
		logger.Info("nothing to do", "top_n", s.limits.TopN)
		return stats, nil
	}

	logger.Info("starting run",
		"url", s.source.URL(),
		"top_n", s.limits.TopN,
		"max_seen_ids", s.limits.MaxSeenIDs,
	)

	seen, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	page, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	items, err := s.parser.Parse(page)
	if err != nil {
		logger.Warn("failed to parse page", "error", err)
		items = nil
	}
	stats.Parsed = len(items)

	if len(items) == 0 {
		logger.Warn("found 0 news links; page structure may have changed", "bytes", len(page))
		stats.Duration = time.Since(startTime)
		return stats, nil
	}

	selected := selectUnseen(items, seen, s.limits.TopN)
	stats.New = len(selected)
	stats.SeenSize = seen.Len()

	logger.Info("selected unseen items",
		"parsed", stats.Parsed,
		"selected", stats.New,
		"seen", stats.SeenSize,
	)

	if len(selected) == 0 {
		logger.Info("no new items found")
		stats.Duration = time.Since(startTime)
		return stats, nil
	}

	msg := s.formatter.Format(selected)
	if err := s.pusher.Send(ctx, msg); err != nil {
		return stats, fmt.Errorf("push message: %w", err)
	}
	stats.Pushed = len(selected)

	s.mirror(ctx, logger, stats, selected)

	for _, it := range selected {
		seen.Add(it.ID)
	}
	evicted := seen.Trim(s.limits.MaxSeenIDs)

	if err := s.state.Save(ctx, seen); err != nil {
		return stats, fmt.Errorf("save state: %w", err)
	}
	stats.SeenSize = seen.Len()
	stats.Duration = time.Since(startTime)

	logger.Info("run completed",
		"pushed", stats.Pushed,
		"mirrored", stats.Mirrored,
		"errors", stats.Errors,
		"evicted", evicted,
		"seen", stats.SeenSize,
		"duration", stats.Duration,
	)

	return stats, nil
}

// mirror failures never fail the run; the webhook is the delivery of record.
func (s *PushService) mirror(ctx context.Context, logger *slog.Logger, stats *domain.RunStats, items []domain.NewsItem) {
	if s.publisher == nil {
		return
	}
	for _, it := range items {
		if err := s.publisher.Publish(ctx, stats.RunID, it); err != nil {
			stats.Errors++
			logger.Warn("failed to mirror item", "id", it.ID, "error", err)
			continue
		}
		stats.Mirrored++
	}
}

// selectUnseen keeps items in page order whose id is not in seen, stopping
// once topN are collected. Repeated ids are merged first.
func selectUnseen(items []domain.NewsItem, seen *domain.SeenSet, topN int) []domain.NewsItem {
	if topN <= 0 {
		return nil
	}

	var out []domain.NewsItem
	for _, it := range mergeDuplicates(items) {
		if len(out) >= topN {
			break
		}
		if it.ID == "" || seen.Contains(it.ID) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// mergeDuplicates collapses items sharing an id into the one with the
// shortest title, placed where the id first appeared. Listing cards often
// link the same id from both the headline and the whole card body.
func mergeDuplicates(items []domain.NewsItem) []domain.NewsItem {
	pos := make(map[string]int, len(items))
	out := make([]domain.NewsItem, 0, len(items))
	for _, it := range items {
		i, ok := pos[it.ID]
		if !ok {
			pos[it.ID] = len(out)
			out = append(out, it)
			continue
		}
		if utf8.RuneCountInString(it.Title) < utf8.RuneCountInString(out[i].Title) {
			out[i] = it
		}
	}
	return out
}

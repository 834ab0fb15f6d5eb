package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brevitybot/internal/domain"
	"go.uber.org/zap"
)

const wikiPageURL = "https://en.wikipedia.org/wiki/Multiservice_tactical_brevity_code"

// Scheduler is the recurring posting loop. One ticker covers every
// community; per-community timers would not scale past a handful of guilds.
type Scheduler struct {
	configs   CommunityConfigStore
	rotation  *Rotation
	images    ImageSource
	messenger Messenger
	tick      time.Duration
	tolerance time.Duration
	clock     func() time.Time
	log       *zap.Logger
}

func NewScheduler(configs CommunityConfigStore, rotation *Rotation, images ImageSource, messenger Messenger, tick, tolerance time.Duration, log *zap.Logger) *Scheduler {
	if tolerance < tick {
		// A window narrower than the tick would skip posts that fall
		// between two polls.
		tolerance = tick
	}
	return &Scheduler{
		configs:   configs,
		rotation:  rotation,
		images:    images,
		messenger: messenger,
		tick:      tick,
		tolerance: tolerance,
		clock:     time.Now,
		log:       log,
	}
}

// Run polls until ctx is cancelled. Failures inside one community's tick are
// contained there; the loop itself never stops on error.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.Info("post scheduler started", zap.Duration("tick", s.tick), zap.Duration("tolerance", s.tolerance))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("post scheduler stopped")
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context) {
	cfgs, err := s.configs.List(ctx)
	if err != nil {
		s.log.Error("list community configs", zap.Error(err))
		return
	}
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		if !s.due(cfg) {
			continue
		}
		if err := s.PostNow(ctx, cfg); err != nil {
			s.log.Warn("scheduled post skipped", zap.String("community", cfg.CommunityID), zap.Error(err))
		}
	}
}

// due reports whether the community's next post time has arrived. The window
// opens tolerance early so tick granularity cannot skip a post; overdue
// communities (e.g. after downtime) post on the next tick, and the
// LastPostedAt write on success keeps a double-fire from double-posting.
func (s *Scheduler) due(cfg domain.CommunityConfig) bool {
	dueAt := cfg.LastPostedAt.Add(cfg.PostInterval)
	return !s.clock().Before(dueAt.Add(-s.tolerance))
}

// PostNow delivers the community's next term immediately. On delivery failure
// the config is pruned: the destination belongs to an external platform and a
// vanished channel will not come back.
func (s *Scheduler) PostNow(ctx context.Context, cfg domain.CommunityConfig) error {
	term, err := s.rotation.Next(ctx, cfg.CommunityID)
	if err != nil {
		return fmt.Errorf("next term: %w", err)
	}

	embed := s.termEmbed(ctx, term)
	if err := s.messenger.SendMessage(ctx, cfg.ChannelID, "Brevity Term of the Day"); err != nil {
		s.prune(ctx, cfg, err)
		return fmt.Errorf("%w: %v", domain.ErrDestinationUnavailable, err)
	}
	if err := s.messenger.SendEmbed(ctx, cfg.ChannelID, embed); err != nil {
		s.prune(ctx, cfg, err)
		return fmt.Errorf("%w: %v", domain.ErrDestinationUnavailable, err)
	}

	cfg.LastPostedAt = s.clock()
	if err := s.configs.Put(ctx, cfg); err != nil {
		return fmt.Errorf("record post time: %w", err)
	}
	s.log.Info("term posted", zap.String("community", cfg.CommunityID), zap.String("term", term.Key))
	return nil
}

func (s *Scheduler) prune(ctx context.Context, cfg domain.CommunityConfig, cause error) {
	s.log.Warn("pruning unreachable community",
		zap.String("community", cfg.CommunityID),
		zap.String("channel", cfg.ChannelID),
		zap.Error(cause))
	if err := s.configs.Delete(ctx, cfg.CommunityID); err != nil {
		s.log.Error("prune community config", zap.String("community", cfg.CommunityID), zap.Error(err))
	}
}

func (s *Scheduler) termEmbed(ctx context.Context, term domain.Term) domain.Embed {
	embed := domain.Embed{
		Title:  term.Key,
		URL:    termWikiURL(term),
		Body:   term.Text,
		Footer: "From Wikipedia – Multiservice Tactical Brevity Code",
	}
	if s.images != nil {
		// Best effort only; a missing image never blocks the post.
		if url, err := s.images.FetchImageURL(ctx); err == nil && url != "" {
			embed.ImageURL = url
		} else if err != nil {
			s.log.Debug("image fetch failed", zap.Error(err))
		}
	}
	return embed
}

// termWikiURL links into the source page's per-letter section.
func termWikiURL(term domain.Term) string {
	key := strings.TrimSpace(term.Key)
	if key == "" {
		return wikiPageURL
	}
	return wikiPageURL + "#" + strings.ToUpper(key[:1])
}

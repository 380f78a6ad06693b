package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"fieldlog/api/internal/config"
	"fieldlog/api/internal/repository"
	"fieldlog/api/internal/storage"
)

// Sweeper periodically removes blobs that no visit row references.
// Visit creation writes the blob before the metadata row, so a failed
// insert can strand an object in the bucket; the sweep reconciles that.
// Opt-in via config, and only considers objects older than the grace
// period so in-flight creates are never raced.
type Sweeper struct {
	cron   *cron.Cron
	visits *repository.VisitRepository
	store  *storage.ObjectStore
	cfg    config.SweepConfig
	log    zerolog.Logger
}

func NewSweeper(visits *repository.VisitRepository, store *storage.ObjectStore, cfg config.SweepConfig, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(cron.WithSeconds()),
		visits: visits,
		store:  store,
		cfg:    cfg,
		log:    log,
	}
}

func (s *Sweeper) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Msg("orphan sweep scheduled")
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("orphan sweep stop timed out")
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.GracePeriod)
	keys, err := s.store.ListKeys(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("orphan sweep list failed")
		return
	}

	removed := 0
	for _, key := range keys {
		referenced, err := s.visits.ExistsByImageURL(ctx, s.store.URLForKey(key))
		if err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("orphan sweep lookup failed")
			return
		}
		if referenced {
			continue
		}
		if err := s.store.DeleteKey(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("orphan sweep delete failed")
			continue
		}
		removed++
	}

	s.log.Info().Int("scanned", len(keys)).Int("removed", removed).Msg("orphan sweep finished")
}

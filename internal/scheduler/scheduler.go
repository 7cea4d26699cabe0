// Package scheduler runs the periodic maintenance work: retrying failed
// object-storage deletes and pruning idle rate limiter entries.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/sougata-github/next-play/internal/repository"
	"github.com/sougata-github/next-play/internal/storage"
)

const cleanupBatchSize = 50

// Entries give up after this many failed attempts; the key stays logged so
// an operator can remove the object by hand.
const maxCleanupAttempts = 10

type limiterPruner interface {
	Prune(maxIdle time.Duration) int
}

type Scheduler struct {
	cron     *cron.Cron
	cleanups *repository.CleanupRepository
	store    *storage.Store
	limiter  limiterPruner
}

func New(cleanups *repository.CleanupRepository, store *storage.Store, limiter limiterPruner) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		cleanups: cleanups,
		store:    store,
		limiter:  limiter,
	}
	if _, err := s.cron.AddFunc("@every 5m", s.retryCleanups); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("@every 10m", s.pruneLimiters); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("maintenance scheduler started")
}

// Stop halts scheduling; the returned context is done when running jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// retryCleanups takes another pass at object deletes that failed earlier.
func (s *Scheduler) retryCleanups() {
	due, err := s.cleanups.ListDue(cleanupBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("cleanup list failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, entry := range due {
		if entry.Attempts >= maxCleanupAttempts {
			log.Error().Str("key", entry.ObjectKey).Int("attempts", entry.Attempts).
				Msg("cleanup abandoned, remove object manually")
			if err := s.cleanups.MarkDone(entry.ID); err != nil {
				log.Error().Err(err).Str("key", entry.ObjectKey).Msg("cleanup dequeue failed")
			}
			continue
		}
		if err := s.store.Delete(ctx, entry.ObjectKey); err != nil {
			log.Warn().Err(err).Str("key", entry.ObjectKey).Msg("cleanup retry failed")
			if err := s.cleanups.MarkFailed(entry.ID); err != nil {
				log.Error().Err(err).Str("key", entry.ObjectKey).Msg("cleanup attempt count update failed")
			}
			continue
		}
		if err := s.cleanups.MarkDone(entry.ID); err != nil {
			log.Error().Err(err).Str("key", entry.ObjectKey).Msg("cleanup dequeue failed")
		}
	}
	if len(due) > 0 {
		log.Info().Int("entries", len(due)).Msg("cleanup retry pass finished")
	}
}

func (s *Scheduler) pruneLimiters() {
	if n := s.limiter.Prune(30 * time.Minute); n > 0 {
		log.Debug().Int("pruned", n).Msg("idle rate limiters dropped")
	}
}

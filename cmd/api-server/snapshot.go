package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

type snapshotStore interface {
	SaveSnapshot(ctx context.Context, payload []byte) (int64, error)
	LatestSnapshot(ctx context.Context) (storage.Snapshot, error)
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

func loadLatest(ctx context.Context, store snapshotStore, svc *scheduling.Service) error {
	latest, err := store.LatestSnapshot(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap scheduling.Snapshot
	if err := json.Unmarshal(latest.Payload, &snap); err != nil {
		return fmt.Errorf("decode snapshot %d: %w", latest.ID, err)
	}
	return svc.Restore(ctx, snap)
}

// snapshotter writes the service state to Postgres. The Redis lock keeps
// replicas from writing at the same time; a round that finds the lock held
// is skipped.
type snapshotter struct {
	svc    *scheduling.Service
	store  snapshotStore
	locker redisclient.Locker
	log    zerolog.Logger
	keep   int
}

func (s *snapshotter) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.saveOnce(ctx)
		}
	}
}

func (s *snapshotter) saveOnce(ctx context.Context) {
	start := time.Now()
	var id int64

	err := s.locker.WithLock(ctx, redisclient.SnapshotLockKey, func(lockCtx context.Context) error {
		payload, err := json.Marshal(s.svc.Snapshot(lockCtx))
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if id, err = s.store.SaveSnapshot(lockCtx, payload); err != nil {
			return err
		}
		if _, err := s.store.PruneSnapshots(lockCtx, s.keep); err != nil {
			s.log.Warn().Err(err).Msg("prune snapshots")
		}
		return nil
	})

	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		metrics.RecordSnapshot("skipped")
		s.log.Debug().Msg("snapshot lock held elsewhere, skipping")
	case err != nil:
		metrics.RecordSnapshot("failed")
		s.log.Error().Err(err).Msg("snapshot failed")
	default:
		metrics.RecordSnapshot("saved")
		s.log.Info().Int64("snapshot_id", id).Dur("duration", time.Since(start)).Msg("snapshot saved")
	}
}

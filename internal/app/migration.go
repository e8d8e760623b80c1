package app

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotelops/internal/adapters/observability"
	"hotelops/internal/domain"
)

type MigrationReport struct {
	Scanned  int `json:"scanned"`
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// MigrationService rewrites rooms stored in the older flat layout into the
// structured one. Rooms already in the current layout are left alone, so a
// run can be repeated safely.
type MigrationService struct {
	store domain.LegacyRoomStore
	cache domain.Cache
	rt    runtime
}

func NewMigrationService(s domain.LegacyRoomStore, c domain.Cache, opts ...Option) *MigrationService {
	return &MigrationService{store: s, cache: c, rt: newRuntime(opts)}
}

// MigrateRooms converts every legacy room using at most workers concurrent
// writes. A room that fails to convert is logged and counted; it does not
// stop the run.
func (s *MigrationService) MigrateRooms(ctx context.Context, workers int) (MigrationReport, error) {
	if workers < 1 {
		workers = 1
	}
	docs, err := s.store.ListRoomDocuments(ctx)
	if err != nil {
		return MigrationReport{}, errors.Wrap(err, "list room documents")
	}

	var (
		mu  sync.Mutex
		rep = MigrationReport{Scanned: len(docs)}
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(workers))
	)
	count := func(result string, n *int) {
		mu.Lock()
		*n++
		mu.Unlock()
		observability.ObserveMigration(result)
	}

	for _, doc := range docs {
		if !IsLegacyRoom(doc.Raw) {
			count("skipped", &rep.Skipped)
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return rep, errors.Wrap(err, "acquire worker")
		}
		wg.Add(1)
		go func(doc domain.RoomDocument) {
			defer wg.Done()
			defer sem.Release(1)

			room, err := mapLegacyRoom(doc, s.rt.now())
			if err == nil {
				err = s.store.ReplaceRoom(ctx, room)
			}
			if err != nil {
				log.Warn().Str("room_id", doc.ID).Err(err).Msg("legacy room migration failed")
				count("failed", &rep.Failed)
				return
			}
			invalidateRoom(ctx, s.cache, room.ID)
			log.Info().Str("room_id", room.ID).Str("number", room.Number).
				Str("status", string(room.Status)).Msg("legacy room migrated")
			count("migrated", &rep.Migrated)
		}(doc)
	}

	wg.Wait()
	log.Info().Int("scanned", rep.Scanned).Int("migrated", rep.Migrated).
		Int("skipped", rep.Skipped).Int("failed", rep.Failed).Msg("legacy room migration completed")
	return rep, nil
}

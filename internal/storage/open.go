// Package storage picks the domain.Store backend named by the configuration.
package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"hotelops/internal/domain"
	"hotelops/internal/shared"
	fsstore "hotelops/internal/storage/firestore"
	"hotelops/internal/storage/memory"
	mysqlrepo "hotelops/internal/storage/mysql"
)

// Open returns the configured store and a function releasing its resources.
func Open(ctx context.Context, cfg shared.Config) (domain.Store, func() error, error) {
	switch cfg.StoreDriver {
	case shared.DriverMySQL:
		db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db), db.Close, nil

	case shared.DriverFirestore:
		s, err := fsstore.New(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("project", cfg.FirestoreProject).Msg("firestore client ok")
		return s, s.Close, nil

	case shared.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.New(), func() error { return nil }, nil
	}
	return nil, nil, errors.Newf("unknown store driver %q", cfg.StoreDriver)
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	authservice "campusvote/internal/auth/service"
	"campusvote/internal/auth/store/revocation"
	electionservice "campusvote/internal/election/service"
	electionstore "campusvote/internal/election/store"
	grievanceservice "campusvote/internal/grievance/service"
	grievancestore "campusvote/internal/grievance/store"
	houseservice "campusvote/internal/house/service"
	housestore "campusvote/internal/house/store"
	"campusvote/internal/platform/config"
	"campusvote/internal/platform/postgres"
	"campusvote/internal/platform/redis"
	lockoutsvc "campusvote/internal/ratelimit/service/authlockout"
	lockoutstore "campusvote/internal/ratelimit/store/authlockout"
	resultsservice "campusvote/internal/results/service"
	societyservice "campusvote/internal/society/service"
	societystore "campusvote/internal/society/store"
	userservice "campusvote/internal/user/service"
	userstore "campusvote/internal/user/store"
	votingservice "campusvote/internal/voting/service"
	votingstore "campusvote/internal/voting/store"
	audit "campusvote/pkg/platform/audit"
	auditmemory "campusvote/pkg/platform/audit/store/memory"
	auditpostgres "campusvote/pkg/platform/audit/store/postgres"
	"campusvote/pkg/platform/tx"
)

// The user, house and society stores serve several services; each local
// interface is the union of what those services need.
type userStore interface {
	userservice.Store
	authservice.UserStore
	houseservice.UserStore
	societyservice.UserStore
	votingservice.UserStore
	resultsservice.UserStore
}

type houseStore interface {
	houseservice.HouseStore
	authservice.HouseStore
}

type societyStore interface {
	societyservice.SocietyStore
	authservice.SocietyStore
}

type voteStore interface {
	votingservice.VoteStore
	resultsservice.VoteStore
}

type revocationList interface {
	authservice.RevocationList
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// purger is implemented by revocation lists that need periodic cleanup.
type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type stores struct {
	db    *sql.DB
	redis *redis.Client

	users      userStore
	houses     houseStore
	societies  societyStore
	elections  electionservice.Store
	votes      voteStore
	grievances grievanceservice.Store
	audit      audit.Store
	revoked    revocationList
	lockouts   lockoutsvc.Store
	tx         tx.Runner
}

// openStores picks the storage driver from cfg. Redis, when configured,
// backs the revocation list regardless of driver.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	s := &stores{}
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.users = userstore.NewPostgres(db)
		s.houses = housestore.NewPostgres(db)
		s.societies = societystore.NewPostgres(db)
		s.elections = electionstore.NewPostgres(db)
		s.votes = votingstore.NewPostgres(db)
		s.grievances = grievancestore.NewPostgres(db)
		s.tx = tx.NewSQLRunner(db)
		s.revoked = revocation.NewPostgresTRL(db)
		s.lockouts = lockoutstore.NewPostgres(db)
		if cfg.AuditPipelineEnabled() {
			s.audit = auditpostgres.New(db)
		} else {
			log.Warn("audit pipeline disabled, keeping audit events in memory")
			s.audit = auditmemory.NewInMemoryStore()
		}
	case config.StorageMemory:
		s.users = userstore.NewInMemoryUserStore()
		s.houses = housestore.NewInMemoryHouseStore()
		s.societies = societystore.NewInMemorySocietyStore()
		s.elections = electionstore.NewInMemoryElectionStore()
		s.votes = votingstore.NewInMemoryVoteStore()
		s.grievances = grievancestore.NewInMemoryGrievanceStore()
		s.tx = tx.NewLockRunner()
		s.revoked = revocation.NewInMemoryTRL(time.Now)
		s.lockouts = lockoutstore.New()
		s.audit = auditmemory.NewInMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	client, err := redis.New(ctx, cfg.RedisConfig)
	if err != nil {
		s.Close()
		return nil, err
	}
	if client != nil {
		s.redis = client
		s.revoked = revocation.NewRedisTRL(client.Client)
		if err := prometheus.Register(client.Collector()); err != nil {
			log.Warn("redis pool metrics not registered", "error", err)
		}
	}
	return s, nil
}

func (s *stores) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

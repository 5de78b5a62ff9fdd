package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/core/ports"
	badgerdb "github.com/childchain/exitd/internal/infrastructure/db/badger"
	inmemorydb "github.com/childchain/exitd/internal/infrastructure/db/inmemory"
	pgdb "github.com/childchain/exitd/internal/infrastructure/db/postgres"
	redisdb "github.com/childchain/exitd/internal/infrastructure/db/redis"
	sqlitedb "github.com/childchain/exitd/internal/infrastructure/db/sqlite"
	watermilldb "github.com/childchain/exitd/internal/infrastructure/db/watermill"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

//go:embed sqlite/migration/*
var migrations embed.FS

//go:embed postgres/migration/*
var pgMigration embed.FS

var (
	blockStoreTypes = map[string]func(...interface{}) (domain.BlockRepository, error){
		"inmemory": inmemorydb.NewBlockRepository,
		"badger":   badgerdb.NewBlockRepository,
		"sqlite":   sqlitedb.NewBlockRepository,
		"postgres": pgdb.NewBlockRepository,
		"redis":    redisdb.NewBlockRepository,
	}
	inFlightExitStoreTypes = map[string]func(...interface{}) (domain.InFlightExitRepository, error){
		"inmemory": inmemorydb.NewInFlightExitRepository,
		"badger":   badgerdb.NewInFlightExitRepository,
		"sqlite":   sqlitedb.NewInFlightExitRepository,
		"postgres": pgdb.NewInFlightExitRepository,
		"redis":    redisdb.NewInFlightExitRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type service struct {
	eventStore        domain.EventRepository
	blockStore        domain.BlockRepository
	inFlightExitStore domain.InFlightExitRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	blockStoreFactory, ok := blockStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("block store type not supported")
	}
	inFlightExitStoreFactory, ok := inFlightExitStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	eventStore, err := newEventStore(config)
	if err != nil {
		return nil, err
	}

	var storeConfig []interface{}
	switch config.DataStoreType {
	case "inmemory", "badger":
		storeConfig = config.DataStoreConfig

	case "postgres":
		db, err := openPostgres(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}

		pgDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres migration driver: %s", err)
		}

		source, err := iofs.New(pgMigration, "postgres/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed postgres migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "postgres", pgDriver)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run postgres migrations: %s", err)
		}

		storeConfig = []interface{}{db}

	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := filepath.Join(baseDir, sqliteDbFile)
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}

		source, err := iofs.New(migrations, "sqlite/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "exitdb", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %s", err)
		}

		storeConfig = []interface{}{db}

	case "redis":
		if len(config.DataStoreConfig) != 2 {
			return nil, fmt.Errorf("invalid data store config for redis")
		}

		redisUrl, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid redis url")
		}
		numOfRetries, ok := config.DataStoreConfig[1].(int)
		if !ok {
			return nil, fmt.Errorf("invalid number of retries for redis")
		}

		redisOpts, err := redis.ParseURL(redisUrl)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %s", err)
		}
		storeConfig = []interface{}{redis.NewClient(redisOpts), numOfRetries}
	}

	blockStore, err := blockStoreFactory(storeConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open block store: %s", err)
	}
	inFlightExitStore, err := inFlightExitStoreFactory(storeConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-flight exit store: %s", err)
	}

	log.Debugf(
		"opened %s data store and %s event store", config.DataStoreType, config.EventStoreType,
	)

	return &service{
		eventStore:        eventStore,
		blockStore:        blockStore,
		inFlightExitStore: inFlightExitStore,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Blocks() domain.BlockRepository {
	return s.blockStore
}

func (s *service) InFlightExits() domain.InFlightExitRepository {
	return s.inFlightExitStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.blockStore.Close()
	s.inFlightExitStore.Close()
}

func newEventStore(config ServiceConfig) (domain.EventRepository, error) {
	switch config.EventStoreType {
	case "inmemory":
		var bufferSize int64
		if len(config.EventStoreConfig) > 0 {
			size, ok := config.EventStoreConfig[0].(int64)
			if !ok {
				return nil, fmt.Errorf("invalid event buffer size")
			}
			bufferSize = size
		}
		publisher := watermilldb.NewGoChannelPublisher(bufferSize)
		return watermilldb.NewWatermillEventRepository(publisher, nil), nil

	case "postgres":
		db, err := openPostgres(config.EventStoreConfig)
		if err != nil {
			return nil, err
		}
		publisher, err := watermilldb.NewPostgresPublisher(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %s", err)
		}
		return watermilldb.NewWatermillEventRepository(publisher, db), nil

	default:
		return nil, fmt.Errorf("unknown event store db type")
	}
}

func openPostgres(config []interface{}) (*sql.DB, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid store config for postgres")
	}

	dsn, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid DSN for postgres")
	}

	autoCreate, ok := config[1].(bool)
	if !ok {
		return nil, fmt.Errorf("invalid autocreate flag for postgres")
	}

	db, err := pgdb.OpenDb(dsn, autoCreate)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %s", err)
	}
	return db, nil
}

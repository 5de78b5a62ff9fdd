package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/infrastructure/db/dbutil"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const inFlightExitStoreDir = "in-flight-exits"

type inFlightExitRepository struct {
	store *badgerhold.Store
}

func NewInFlightExitRepository(config ...interface{}) (domain.InFlightExitRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, inFlightExitStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-flight exit store: %s", err)
	}

	return &inFlightExitRepository{store}, nil
}

func (r *inFlightExitRepository) Add(ctx context.Context, exit domain.InFlightExit) error {
	record := dbutil.ToInFlightExit(exit)
	err := withRetry(func() error {
		return r.store.Insert(record.ExitId, record)
	})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return domain.ErrExitAlreadyExists
	}
	return err
}

func (r *inFlightExitRepository) Get(
	ctx context.Context, id exitid.ExitID,
) (*domain.InFlightExit, error) {
	var record dbutil.InFlightExit
	err := r.store.Get(id.String(), &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight exit %s: %w", id, err)
	}
	return record.ToDomain()
}

func (r *inFlightExitRepository) Update(ctx context.Context, exit domain.InFlightExit) error {
	record := dbutil.ToInFlightExit(exit)
	err := withRetry(func() error {
		return r.store.Update(record.ExitId, record)
	})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return domain.ErrExitNotFound
	}
	return err
}

func (r *inFlightExitRepository) GetAll(ctx context.Context) ([]domain.InFlightExit, error) {
	var records []dbutil.InFlightExit
	if err := r.store.Find(&records, nil); err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})

	exits := make([]domain.InFlightExit, 0, len(records))
	for _, record := range records {
		exit, err := record.ToDomain()
		if err != nil {
			return nil, err
		}
		exits = append(exits, *exit)
	}
	return exits, nil
}

func (r *inFlightExitRepository) Close() {
	// nolint:all
	r.store.Close()
}

package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/infrastructure/db/dbutil"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/redis/go-redis/v9"
)

const inFlightExitsHashKey = "inFlightExitStore:exits"

type inFlightExitRepository struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewInFlightExitRepository(config ...interface{}) (domain.InFlightExitRepository, error) {
	rdb, numOfRetries, err := parseConfig(config...)
	if err != nil {
		return nil, err
	}
	return &inFlightExitRepository{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}, nil
}

func (r *inFlightExitRepository) Add(ctx context.Context, exit domain.InFlightExit) error {
	return r.write(ctx, exit, false)
}

func (r *inFlightExitRepository) Update(ctx context.Context, exit domain.InFlightExit) error {
	return r.write(ctx, exit, true)
}

func (r *inFlightExitRepository) Get(
	ctx context.Context, id exitid.ExitID,
) (*domain.InFlightExit, error) {
	val, err := r.rdb.HGet(ctx, inFlightExitsHashKey, id.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get in-flight exit %s: %v", id, err)
	}
	return decodeExit(id.String(), val)
}

func (r *inFlightExitRepository) GetAll(ctx context.Context) ([]domain.InFlightExit, error) {
	vals, err := r.rdb.HGetAll(ctx, inFlightExitsHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight exits: %v", err)
	}

	exits := make([]domain.InFlightExit, 0, len(vals))
	for id, val := range vals {
		exit, err := decodeExit(id, val)
		if err != nil {
			return nil, err
		}
		exits = append(exits, *exit)
	}
	sort.SliceStable(exits, func(i, j int) bool {
		return exits[i].Position < exits[j].Position
	})
	return exits, nil
}

func (r *inFlightExitRepository) Close() {
	// nolint:all
	r.rdb.Close()
}

// write stores the exit inside a WATCH transaction so that concurrent writers
// racing on the same id see a consistent existence check.
func (r *inFlightExitRepository) write(
	ctx context.Context, exit domain.InFlightExit, mustExist bool,
) error {
	id := exit.ExitId.String()
	val, err := json.Marshal(dbutil.ToInFlightExit(exit))
	if err != nil {
		return fmt.Errorf("failed to marshal in-flight exit %s: %v", id, err)
	}

	for i := 0; i < r.numOfRetries; i++ {
		err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.HExists(ctx, inFlightExitsHashKey, id).Result()
			if err != nil {
				return err
			}
			if exists && !mustExist {
				return domain.ErrExitAlreadyExists
			}
			if !exists && mustExist {
				return domain.ErrExitNotFound
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, inFlightExitsHashKey, id, val)
				return nil
			})
			return err
		}, inFlightExitsHashKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrExitAlreadyExists) || errors.Is(err, domain.ErrExitNotFound) {
			return err
		}
		time.Sleep(r.retryDelay)
	}
	return fmt.Errorf(
		"failed to write in-flight exit %s after max number of retries: %v", id, err,
	)
}

func decodeExit(id, val string) (*domain.InFlightExit, error) {
	var record dbutil.InFlightExit
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("malformed in-flight exit %s in storage: %v", id, err)
	}
	return record.ToDomain()
}

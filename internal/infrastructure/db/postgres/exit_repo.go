package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/infrastructure/db/dbutil"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
)

type inFlightExitRepository struct {
	db *sql.DB
}

func NewInFlightExitRepository(config ...interface{}) (domain.InFlightExitRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config: expected 1 argument, got %d", len(config))
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf(
			"cannot open in-flight exit repository: expected *sql.DB but got %T", config[0],
		)
	}

	return &inFlightExitRepository{db}, nil
}

func (r *inFlightExitRepository) Add(ctx context.Context, exit domain.InFlightExit) error {
	record := dbutil.ToInFlightExit(exit)
	position, err := dbutil.ToInt64(record.Position)
	if err != nil {
		return fmt.Errorf("invalid position: %w", err)
	}

	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx, insertInFlightExit, record.ExitId, record.TxHash, record.BondOwner,
			position, record.StartTimestamp, record.ExitMap, record.IsCanonical,
		)
		if err != nil {
			return fmt.Errorf("failed to insert in-flight exit: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrExitAlreadyExists
		}
		return insertWithdrawDataList(ctx, tx, record)
	})
}

func (r *inFlightExitRepository) Update(ctx context.Context, exit domain.InFlightExit) error {
	record := dbutil.ToInFlightExit(exit)
	position, err := dbutil.ToInt64(record.Position)
	if err != nil {
		return fmt.Errorf("invalid position: %w", err)
	}

	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx, updateInFlightExit, record.TxHash, record.BondOwner, position,
			record.StartTimestamp, record.ExitMap, record.IsCanonical, record.ExitId,
		)
		if err != nil {
			return fmt.Errorf("failed to update in-flight exit: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrExitNotFound
		}
		if _, err := tx.ExecContext(ctx, deleteWithdrawData, record.ExitId); err != nil {
			return fmt.Errorf("failed to delete withdraw data: %w", err)
		}
		return insertWithdrawDataList(ctx, tx, record)
	})
}

func (r *inFlightExitRepository) Get(
	ctx context.Context, id exitid.ExitID,
) (*domain.InFlightExit, error) {
	row := r.db.QueryRowContext(ctx, selectInFlightExit, id.String())
	record, err := scanInFlightExit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight exit %s: %w", id, err)
	}
	if err := r.loadWithdrawData(ctx, record); err != nil {
		return nil, err
	}
	return record.ToDomain()
}

func (r *inFlightExitRepository) GetAll(ctx context.Context) ([]domain.InFlightExit, error) {
	rows, err := r.db.QueryContext(ctx, selectAllInFlightExits)
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight exits: %w", err)
	}
	// nolint
	defer rows.Close()

	records := make([]*dbutil.InFlightExit, 0)
	for rows.Next() {
		record, err := scanInFlightExit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// nolint
	rows.Close()

	exits := make([]domain.InFlightExit, 0, len(records))
	for _, record := range records {
		if err := r.loadWithdrawData(ctx, record); err != nil {
			return nil, err
		}
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
	r.db.Close()
}

func (r *inFlightExitRepository) loadWithdrawData(
	ctx context.Context, record *dbutil.InFlightExit,
) error {
	rows, err := r.db.QueryContext(ctx, selectWithdrawData, record.ExitId)
	if err != nil {
		return fmt.Errorf("failed to get withdraw data of %s: %w", record.ExitId, err)
	}
	// nolint
	defer rows.Close()

	record.Inputs = make([]dbutil.WithdrawData, 0)
	record.Outputs = make([]dbutil.WithdrawData, 0)
	for rows.Next() {
		var isOutput bool
		var w dbutil.WithdrawData
		if err := rows.Scan(
			&isOutput, &w.OutputId, &w.ExitTarget, &w.Token, &w.Amount,
		); err != nil {
			return fmt.Errorf("failed to scan withdraw data: %w", err)
		}
		if isOutput {
			record.Outputs = append(record.Outputs, w)
		} else {
			record.Inputs = append(record.Inputs, w)
		}
	}
	return rows.Err()
}

func insertWithdrawDataList(ctx context.Context, tx *sql.Tx, record dbutil.InFlightExit) error {
	for i, w := range record.Inputs {
		if _, err := tx.ExecContext(
			ctx, insertWithdrawData, record.ExitId, false, i,
			w.OutputId, w.ExitTarget, w.Token, w.Amount,
		); err != nil {
			return fmt.Errorf("failed to insert input withdraw data: %w", err)
		}
	}
	for i, w := range record.Outputs {
		if _, err := tx.ExecContext(
			ctx, insertWithdrawData, record.ExitId, true, i,
			w.OutputId, w.ExitTarget, w.Token, w.Amount,
		); err != nil {
			return fmt.Errorf("failed to insert output withdraw data: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInFlightExit(row scanner) (*dbutil.InFlightExit, error) {
	var record dbutil.InFlightExit
	var position int64
	if err := row.Scan(
		&record.ExitId, &record.TxHash, &record.BondOwner, &position,
		&record.StartTimestamp, &record.ExitMap, &record.IsCanonical,
	); err != nil {
		return nil, err
	}
	record.Position = uint64(position)
	return &record, nil
}

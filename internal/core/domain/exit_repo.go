package domain

import (
	"context"
	"errors"

	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
)

var (
	ErrExitAlreadyExists = errors.New("in-flight exit already exists")
	ErrExitNotFound      = errors.New("in-flight exit not found")
)

type InFlightExitRepository interface {
	// Add inserts a new exit, it fails with ErrExitAlreadyExists if the id is taken
	Add(ctx context.Context, exit InFlightExit) error
	// Get returns nil if no exit exists for the given id
	Get(ctx context.Context, id exitid.ExitID) (*InFlightExit, error)
	// Update overwrites an existing exit, it fails with ErrExitNotFound otherwise
	Update(ctx context.Context, exit InFlightExit) error
	GetAll(ctx context.Context) ([]InFlightExit, error)
	Close()
}

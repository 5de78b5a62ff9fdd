package ports

import "github.com/childchain/exitd/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Blocks() domain.BlockRepository
	InFlightExits() domain.InFlightExitRepository
	Close()
}

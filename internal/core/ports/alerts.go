package ports

import "context"

const (
	InFlightExitStarted Topic = "In-Flight Exit Started"
)

type Topic string

type Alerts interface {
	Publish(ctx context.Context, topic Topic, message interface{}) error
}

type InFlightExitStartedAlert struct {
	ExitId       string
	TxHash       string
	Initiator    string
	Position     uint64
	InputsCount  int
	OutputsCount int
	StartedAt    int64
	Tokens       map[string]string // token -> total amount exiting from inputs
}

package domain

import "github.com/ethereum/go-ethereum/common"

const InFlightExitTopic = "InFlightExitStarted"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeInFlightExitStarted
)

type Event interface {
	GetTopic() string
	GetType() EventType
}

type InFlightExitStarted struct {
	Id        string
	Type      EventType
	Initiator common.Address
	TxHash    common.Hash
}

func NewInFlightExitStarted(id string, initiator common.Address, txHash common.Hash) InFlightExitStarted {
	return InFlightExitStarted{
		Id:        id,
		Type:      EventTypeInFlightExitStarted,
		Initiator: initiator,
		TxHash:    txHash,
	}
}

func (e InFlightExitStarted) GetTopic() string   { return InFlightExitTopic }
func (e InFlightExitStarted) GetType() EventType { return e.Type }

package application

import (
	"context"
	"time"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

func (s *service) sendInFlightExitAlert(exit domain.InFlightExit, sender common.Address) {
	s.publishAlert(ports.InFlightExitStarted, getInFlightExitStats(exit, sender))
}

func (s *service) publishAlert(topic ports.Topic, message ports.InFlightExitStartedAlert) {
	if s.alerts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.alerts.Publish(ctx, topic, message); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("failed to publish alert")
	}
}

func getInFlightExitStats(
	exit domain.InFlightExit, sender common.Address,
) ports.InFlightExitStartedAlert {
	totals := make(map[common.Address]*uint256.Int)
	for _, in := range exit.Inputs {
		if in.Amount == nil {
			continue
		}
		if _, ok := totals[in.Token]; !ok {
			totals[in.Token] = new(uint256.Int)
		}
		totals[in.Token].Add(totals[in.Token], in.Amount)
	}

	tokens := make(map[string]string, len(totals))
	for token, amount := range totals {
		tokens[token.Hex()] = amount.Dec()
	}

	return ports.InFlightExitStartedAlert{
		ExitId:       exit.ExitId.String(),
		TxHash:       exit.TxHash.Hex(),
		Initiator:    sender.Hex(),
		Position:     exit.Position.Uint64(),
		InputsCount:  len(exit.Inputs),
		OutputsCount: len(exit.Outputs),
		StartedAt:    exit.StartTimestamp,
		Tokens:       tokens,
	}
}

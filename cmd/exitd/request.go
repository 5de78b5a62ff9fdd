package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/childchain/exitd/internal/core/application"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type startInFlightExitRequest struct {
	InFlightTx                    hexutil.Bytes   `json:"inFlightTx"`
	InputTxs                      []hexutil.Bytes `json:"inputTxs"`
	InputUtxosPos                 []uint64        `json:"inputUtxosPos"`
	InputUtxosTypes               []uint          `json:"inputUtxosTypes"`
	InputTxsInclusionProofs       []hexutil.Bytes `json:"inputTxsInclusionProofs"`
	InFlightTxWitnesses           []hexutil.Bytes `json:"inFlightTxWitnesses"`
	OutputGuardPreimagesForInputs []hexutil.Bytes `json:"outputGuardPreimagesForInputs"`
}

func parseRequest(arg string) (*application.StartInFlightExitRequest, error) {
	buf := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if buf, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read request file: %s", err)
		}
	}

	var req startInFlightExitRequest
	if err := json.Unmarshal(buf, &req); err != nil {
		return nil, fmt.Errorf("invalid request: %s", err)
	}

	return &application.StartInFlightExitRequest{
		InFlightTx:                    req.InFlightTx,
		InputTxs:                      toBytesList(req.InputTxs),
		InputUtxosPos:                 req.InputUtxosPos,
		InputUtxosTypes:               req.InputUtxosTypes,
		InputTxsInclusionProofs:       toBytesList(req.InputTxsInclusionProofs),
		InFlightTxWitnesses:           toBytesList(req.InFlightTxWitnesses),
		OutputGuardPreimagesForInputs: toBytesList(req.OutputGuardPreimagesForInputs),
	}, nil
}

func toBytesList(list []hexutil.Bytes) [][]byte {
	if list == nil {
		return nil
	}
	out := make([][]byte, 0, len(list))
	for _, b := range list {
		out = append(out, b)
	}
	return out
}

func printJSON(v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

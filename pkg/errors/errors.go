package errors

import (
	"encoding/json"
	goerrors "errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Is reports whether err carries this code.
func (c Code[MT]) Is(err error) bool {
	var e Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.Code() == c.Code
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

// GRPCStatus lets status.Convert and status.Code classify the error.
func (e *ErrorImpl[MT]) GRPCStatus() *status.Status {
	return status.New(e.code.GrpcCode, e.Error())
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type TxMetadata struct {
	Tx string `json:"tx"`
}

type UtxoPosMetadata struct {
	InputIndex int    `json:"input_index"`
	UtxoPos    uint64 `json:"utxo_pos"`
}

type InputCountMismatchMetadata struct {
	Field    string `json:"field"`
	Expected int    `json:"expected"`
	Got      int    `json:"got"`
}

type DuplicateInputMetadata struct {
	Input       string `json:"input"`
	FirstIndex  int    `json:"first_index"`
	SecondIndex int    `json:"second_index"`
}

type ExitMetadata struct {
	ExitId string `json:"exit_id"`
	TxHash string `json:"tx_hash,omitempty"`
}

type InclusionMetadata struct {
	InputIndex int    `json:"input_index"`
	BlockNum   uint64 `json:"block_num"`
	TxIndex    uint64 `json:"tx_index"`
}

type GuardMismatchMetadata struct {
	InputIndex    int    `json:"input_index"`
	ExpectedGuard string `json:"expected_guard"`
	GotGuard      string `json:"got_guard"`
}

type OutputTypeMetadata struct {
	InputIndex int  `json:"input_index"`
	OutputType uint `json:"output_type"`
	TxType     uint `json:"tx_type,omitempty"`
}

type InputMetadata struct {
	InputIndex int    `json:"input_index"`
	OutputId   string `json:"output_id,omitempty"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var MALFORMED_TX = Code[TxMetadata]{1, "MALFORMED_TX", grpccodes.InvalidArgument}

var INVALID_UTXO_POSITION = Code[UtxoPosMetadata]{
	2,
	"INVALID_UTXO_POSITION",
	grpccodes.InvalidArgument,
}

var INPUT_COUNT_MISMATCH = Code[InputCountMismatchMetadata]{
	3,
	"INPUT_COUNT_MISMATCH",
	grpccodes.InvalidArgument,
}
var DUPLICATE_INPUT = Code[DuplicateInputMetadata]{4, "DUPLICATE_INPUT", grpccodes.InvalidArgument}
var EXIT_ALREADY_ACTIVE = Code[ExitMetadata]{5, "EXIT_ALREADY_ACTIVE", grpccodes.AlreadyExists}

var EXIT_ALREADY_FINALIZED = Code[ExitMetadata]{
	6,
	"EXIT_ALREADY_FINALIZED",
	grpccodes.FailedPrecondition,
}

var NOT_INCLUDED_IN_LEDGER = Code[InclusionMetadata]{
	7,
	"NOT_INCLUDED_IN_LEDGER",
	grpccodes.InvalidArgument,
}
var GUARD_MISMATCH = Code[GuardMismatchMetadata]{8, "GUARD_MISMATCH", grpccodes.InvalidArgument}

var NO_SPENDING_CONDITION = Code[OutputTypeMetadata]{
	9,
	"NO_SPENDING_CONDITION",
	grpccodes.FailedPrecondition,
}

var SPENDING_CONDITION_FAILED = Code[InputMetadata]{
	10,
	"SPENDING_CONDITION_FAILED",
	grpccodes.PermissionDenied,
}

var INVALID_STATE_TRANSITION = Code[TxMetadata]{
	11,
	"INVALID_STATE_TRANSITION",
	grpccodes.InvalidArgument,
}
var NO_GUARD_PARSER = Code[OutputTypeMetadata]{12, "NO_GUARD_PARSER", grpccodes.FailedPrecondition}
var EXIT_NOT_FOUND = Code[ExitMetadata]{13, "EXIT_NOT_FOUND", grpccodes.NotFound}

type BlockMetadata struct {
	BlockNum uint64 `json:"block_num"`
}

var INVALID_BLOCK = Code[BlockMetadata]{14, "INVALID_BLOCK", grpccodes.InvalidArgument}

package main

import "github.com/urfave/cli/v2"

const (
	configFlagName  = "config"
	numberFlagName  = "number"
	rootFlagName    = "root"
	requestFlagName = "request"
	senderFlagName  = "sender"
	txFlagName      = "tx"
	idFlagName      = "id"
	indexFlagName   = "index"
)

var (
	configFlag = &cli.StringFlag{
		Name:    configFlagName,
		Usage:   "path to a config file (yaml, json or toml) with values for the global flags",
		EnvVars: []string{"EXITD_CONFIG"},
	}
	numberFlag = &cli.Uint64Flag{
		Name:     numberFlagName,
		Usage:    "child chain block number",
		Required: true,
	}
	rootFlag = &cli.StringFlag{
		Name:     rootFlagName,
		Usage:    "merkle root of the block transactions in hex format",
		Required: true,
	}
	requestFlag = &cli.StringFlag{
		Name:     requestFlagName,
		Usage:    "start in-flight exit request in json format, or @path to read it from a file",
		Required: true,
	}
	senderFlag = &cli.StringFlag{
		Name:     senderFlagName,
		Usage:    "address of the exit initiator owning the bond",
		Required: true,
	}
	txFlag = &cli.StringFlag{
		Name:  txFlagName,
		Usage: "in-flight transaction in hex format",
	}
	idFlag = &cli.StringFlag{
		Name:  idFlagName,
		Usage: "in-flight exit id in hex format",
	}
	txsFlag = &cli.StringSliceFlag{
		Name:     txFlagName,
		Usage:    "block transactions in hex format, in block order",
		Required: true,
	}
	indexFlag = &cli.Uint64Flag{
		Name:  indexFlagName,
		Usage: "index of the transaction to build the inclusion proof for",
	}
)

package main

import (
	"fmt"
	"os"

	"github.com/childchain/exitd/internal/config"
	"github.com/childchain/exitd/internal/core/application"
	"github.com/childchain/exitd/pkg/errors"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/childchain/exitd/pkg/plasma-lib/merkle"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

func main() {
	app := cli.NewApp()
	app.Name = "exitd"
	app.Version = Version
	app.Usage = "in-flight exit admission for a plasma child chain"
	app.Flags = append([]cli.Flag{configFlag}, config.Flags...)
	app.Before = loadConfigFile
	app.Commands = []*cli.Command{
		submitBlockCmd,
		startInFlightExitCmd,
		getInFlightExitCmd,
		listInFlightExitsCmd,
		inclusionProofCmd,
		configCmd,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	submitBlockCmd = &cli.Command{
		Name:   "submit-block",
		Usage:  "Record the merkle root committed for a child chain block",
		Flags:  []cli.Flag{numberFlag, rootFlag},
		Action: submitBlockAction,
	}
	startInFlightExitCmd = &cli.Command{
		Name:   "start-in-flight-exit",
		Usage:  "Start an in-flight exit for a transaction",
		Flags:  []cli.Flag{requestFlag, senderFlag},
		Action: startInFlightExitAction,
	}
	getInFlightExitCmd = &cli.Command{
		Name:   "get-in-flight-exit",
		Usage:  "Get the in-flight exit of a transaction or with the given id",
		Flags:  []cli.Flag{txFlag, idFlag},
		Action: getInFlightExitAction,
	}
	listInFlightExitsCmd = &cli.Command{
		Name:   "list-in-flight-exits",
		Usage:  "List all in-flight exits ordered by position",
		Action: listInFlightExitsAction,
	}
	inclusionProofCmd = &cli.Command{
		Name:   "inclusion-proof",
		Usage:  "Compute the merkle root of a block and the inclusion proof of one of its txs",
		Flags:  []cli.Flag{txsFlag, indexFlag},
		Action: inclusionProofAction,
	}
	configCmd = &cli.Command{
		Name:   "config",
		Usage:  "Print the resolved configuration",
		Action: configAction,
	}
)

func submitBlockAction(ctx *cli.Context) error {
	root, err := hexutil.Decode(ctx.String(rootFlagName))
	if err != nil || len(root) != common.HashLength {
		return fmt.Errorf("invalid block root")
	}

	svc, err := appService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	number := ctx.Uint64(numberFlagName)
	if err := svc.SubmitBlock(ctx.Context, number, common.BytesToHash(root)); err != nil {
		return printError(err)
	}
	return printJSON(map[string]any{"number": number, "root": common.BytesToHash(root).Hex()})
}

func startInFlightExitAction(ctx *cli.Context) error {
	req, err := parseRequest(ctx.String(requestFlagName))
	if err != nil {
		return err
	}
	sender := ctx.String(senderFlagName)
	if !common.IsHexAddress(sender) {
		return fmt.Errorf("invalid sender address")
	}

	svc, err := appService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	exit, appErr := svc.StartInFlightExit(ctx.Context, common.HexToAddress(sender), *req)
	if appErr != nil {
		return printError(appErr)
	}
	return printJSON(exit)
}

func getInFlightExitAction(ctx *cli.Context) error {
	txHex, idHex := ctx.String(txFlagName), ctx.String(idFlagName)
	if (txHex == "") == (idHex == "") {
		return fmt.Errorf("exactly one of --%s and --%s is required", txFlagName, idFlagName)
	}

	svc, err := appService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	if txHex != "" {
		tx, err := hexutil.Decode(txHex)
		if err != nil {
			return fmt.Errorf("invalid tx: %s", err)
		}
		exit, appErr := svc.GetInFlightExit(ctx.Context, tx)
		if appErr != nil {
			return printError(appErr)
		}
		return printJSON(exit)
	}

	id, err := exitid.ExitIDFromString(idHex)
	if err != nil {
		return fmt.Errorf("invalid exit id: %s", err)
	}
	exit, appErr := svc.GetInFlightExitByID(ctx.Context, id)
	if appErr != nil {
		return printError(appErr)
	}
	return printJSON(exit)
}

func listInFlightExitsAction(ctx *cli.Context) error {
	svc, err := appService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	exits, appErr := svc.ListInFlightExits(ctx.Context)
	if appErr != nil {
		return printError(appErr)
	}
	return printJSON(exits)
}

func inclusionProofAction(ctx *cli.Context) error {
	txsHex := ctx.StringSlice(txFlagName)
	txs := make([][]byte, 0, len(txsHex))
	for _, txHex := range txsHex {
		tx, err := hexutil.Decode(txHex)
		if err != nil {
			return fmt.Errorf("invalid tx %s: %s", txHex, err)
		}
		if _, err := transaction.Decode(tx); err != nil {
			log.WithError(err).Warnf("tx %s is not a valid transaction", txHex)
		}
		txs = append(txs, tx)
	}

	tree, err := merkle.NewTree(txs)
	if err != nil {
		return err
	}
	index := ctx.Uint64(indexFlagName)
	proof, err := tree.Proof(index)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"root":  tree.Root().Hex(),
		"index": index,
		"proof": hexutil.Encode(proof),
	})
}

func configAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	fmt.Println(cfg.String())
	return nil
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	return cfg, nil
}

func appService(ctx *cli.Context) (application.Service, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := cfg.AppService()
	if err != nil {
		return nil, fmt.Errorf("failed to init service: %s", err)
	}
	log.Debugf("loaded config: %s", cfg)
	return svc, nil
}

func printError(err errors.Error) error {
	// nolint
	printJSON(map[string]any{
		"code":     err.Code(),
		"name":     err.CodeName(),
		"message":  err.Error(),
		"metadata": err.Metadata(),
	})
	return cli.Exit("", 1)
}


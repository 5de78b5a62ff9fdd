package config

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"testing"

	"github.com/childchain/exitd/internal/core/application"
	"github.com/childchain/exitd/pkg/plasma-lib/merkle"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(append([]string{"--datadir", t.TempDir()}, args...)))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig(newContext(t))
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		require.Equal(t, "badger", cfg.DbType)
		require.Equal(t, "inmemory", cfg.EventDbType)
		require.Equal(t, uint64(1000), cfg.ChildBlockInterval)
		require.Equal(t, 4, cfg.LogLevel)
	})

	t.Run("missing_urls", func(t *testing.T) {
		_, err := LoadConfig(newContext(t, "--db-type", "postgres"))
		require.ErrorContains(t, err, "db url is missing")

		_, err = LoadConfig(newContext(t, "--event-db-type", "postgres"))
		require.ErrorContains(t, err, "event db url is missing")

		_, err = LoadConfig(newContext(t, "--db-type", "redis"))
		require.ErrorContains(t, err, "redis url is missing")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"unknown_db", []string{"--db-type", "mongo"}, "db type not supported"},
		{"unknown_event_db", []string{"--event-db-type", "badger"}, "event db type not supported"},
		{"interval", []string{"--child-block-interval", "1"}, "child block interval"},
		{"retries", []string{"--redis-num-of-retries", "0"}, "number of retries"},
		{"contract", []string{"--domain-verifying-contract", "0x12"}, "verifying contract"},
		{"salt", []string{"--domain-salt", "0x1234"}, "invalid domain salt"},
		{"log_level", []string{"--log-level", "9"}, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(newContext(t, tt.args...))
			require.NoError(t, err)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestAppService(t *testing.T) {
	cfg, err := LoadConfig(newContext(t, "--db-type", "inmemory"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	svc, err := cfg.AppService()
	require.NoError(t, err)
	defer svc.Stop()

	same, err := cfg.AppService()
	require.NoError(t, err)
	require.Equal(t, svc, same)

	tree, err := merkle.NewTree([][]byte{[]byte("tx")})
	require.NoError(t, err)
	require.Nil(t, svc.SubmitBlock(context.Background(), 1000, tree.Root()))

	_, appErr := svc.StartInFlightExit(
		context.Background(), crypto.PubkeyToAddress(mustKey(t).PublicKey),
		application.StartInFlightExitRequest{InFlightTx: []byte{0x01}},
	)
	require.NotNil(t, appErr)
	require.Equal(t, "MALFORMED_TX", appErr.CodeName())
}

func TestDomainSeparator(t *testing.T) {
	salt := "0x" + "11223344556677889900aabbccddeeff11223344556677889900aabbccddeeff"
	cfg, err := LoadConfig(newContext(t, "--domain-salt", salt))
	require.NoError(t, err)

	ds, err := cfg.DomainSeparator()
	require.NoError(t, err)

	other, err := LoadConfig(newContext(t))
	require.NoError(t, err)
	otherDs, err := other.DomainSeparator()
	require.NoError(t, err)
	require.NotEqual(t, ds, otherDs)
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/childchain/exitd/internal/core/application"
	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/core/ports"
	alertsmanager "github.com/childchain/exitd/internal/infrastructure/alertsmanager"
	"github.com/childchain/exitd/internal/infrastructure/db"
	"github.com/childchain/exitd/internal/infrastructure/exitgame/payment"
	"github.com/childchain/exitd/internal/infrastructure/exitgame/registry"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedEventDbs = supportedType{
		"inmemory": {},
		"postgres": {},
	}
	supportedDbs = supportedType{
		"inmemory": {},
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
		"redis":    {},
	}
)

type Config struct {
	Datadir  string
	LogLevel int

	DbType          string
	EventDbType     string
	DbDir           string
	DbUrl           string
	EventDbUrl      string
	EventBufferSize int64
	RedisUrl        string
	RedisNumRetries int

	ChildBlockInterval uint64

	DomainName              string
	DomainVersion           string
	DomainVerifyingContract string
	DomainSalt              string

	AlertManagerURL string
	ExplorerURL     string

	repo   ports.RepoManager
	svc    application.Service
	alerts ports.Alerts
}

func (c *Config) String() string {
	clone := *c
	if clone.DbUrl != "" {
		clone.DbUrl = "••••••"
	}
	if clone.EventDbUrl != "" {
		clone.EventDbUrl = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir            = appDataDir("exitd")
	defaultDbType             = "badger"
	defaultEventDbType        = "inmemory"
	defaultEventBufferSize    = 64
	defaultRedisNumOfRetries  = 10
	defaultLogLevel           = 4
	defaultChildBlockInterval = utxo.DefaultChildBlockInterval
	defaultDomainName         = "OMG Network"
	defaultDomainVersion      = "1"
)

// env returns a list of strings prefixed with `EXITD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("EXITD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (inmemory, badger, sqlite, postgres, redis)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if EXITD_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	EventDbType = &cli.StringFlag{
		Usage: "Event database type (inmemory, postgres)",
		Name:  "event-db-type", EnvVars: env("EVENT_DB_TYPE"),
		Value: defaultEventDbType,
	}

	EventDbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if EXITD_EVENT_DB_TYPE is set to postgres",
		Name:  "pg-event-db-url", EnvVars: env("PG_EVENT_DB_URL"),
	}

	EventBufferSize = &cli.Int64Flag{
		Usage: "Size of the in-memory event channel buffer",
		Name:  "event-buffer-size", EnvVars: env("EVENT_BUFFER_SIZE"),
		Value: int64(defaultEventBufferSize),
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db url if EXITD_DB_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisNumOfRetries,
	}

	ChildBlockInterval = &cli.Uint64Flag{
		Usage: "Numbering interval of child chain blocks, any other block number is a deposit block",
		Name:  "child-block-interval", EnvVars: env("CHILD_BLOCK_INTERVAL"),
		Value: defaultChildBlockInterval,
	}

	DomainName = &cli.StringFlag{
		Usage: "Name of the signature domain of payment transactions",
		Name:  "domain-name", EnvVars: env("DOMAIN_NAME"),
		Value: defaultDomainName,
	}

	DomainVersion = &cli.StringFlag{
		Usage: "Version of the signature domain of payment transactions",
		Name:  "domain-version", EnvVars: env("DOMAIN_VERSION"),
		Value: defaultDomainVersion,
	}

	DomainVerifyingContract = &cli.StringFlag{
		Usage: "Address of the plasma framework contract bound to payment signatures",
		Name:  "domain-verifying-contract", EnvVars: env("DOMAIN_VERIFYING_CONTRACT"),
	}

	DomainSalt = &cli.StringFlag{
		Usage: "32-byte hex salt of the signature domain of payment transactions",
		Name:  "domain-salt", EnvVars: env("DOMAIN_SALT"),
	}

	AlertManagerURL = &cli.StringFlag{
		Usage: "Alertmanager url to notify about started in-flight exits",
		Name:  "alert-manager-url", EnvVars: env("ALERT_MANAGER_URL"),
	}

	ExplorerURL = &cli.StringFlag{
		Usage: "Block explorer url linked from alerts",
		Name:  "explorer-url", EnvVars: env("EXPLORER_URL"),
	}
)

var Flags = []cli.Flag{
	Datadir,
	LogLevel,
	DbType,
	DbUrl,
	EventDbType,
	EventDbUrl,
	EventBufferSize,
	RedisUrl,
	RedisNumOfRetries,
	ChildBlockInterval,
	DomainName,
	DomainVersion,
	DomainVerifyingContract,
	DomainSalt,
	AlertManagerURL,
	ExplorerURL,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var eventDbUrl string
	if c.String(EventDbType.Name) == "postgres" {
		eventDbUrl = c.String(EventDbUrl.Name)
		if eventDbUrl == "" {
			return nil, fmt.Errorf("event db type set to 'postgres' but event db url is missing")
		}
	}

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(DbType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("db type set to 'redis' but redis url is missing")
		}
	}

	return &Config{
		Datadir:                 c.String(Datadir.Name),
		LogLevel:                c.Int(LogLevel.Name),
		DbType:                  c.String(DbType.Name),
		EventDbType:             c.String(EventDbType.Name),
		DbDir:                   dbPath,
		DbUrl:                   dbUrl,
		EventDbUrl:              eventDbUrl,
		EventBufferSize:         c.Int64(EventBufferSize.Name),
		RedisUrl:                redisUrl,
		RedisNumRetries:         c.Int(RedisNumOfRetries.Name),
		ChildBlockInterval:      c.Uint64(ChildBlockInterval.Name),
		DomainName:              c.String(DomainName.Name),
		DomainVersion:           c.String(DomainVersion.Name),
		DomainVerifyingContract: c.String(DomainVerifyingContract.Name),
		DomainSalt:              c.String(DomainSalt.Name),
		AlertManagerURL:         c.String(AlertManagerURL.Name),
		ExplorerURL:             c.String(ExplorerURL.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "."+strings.ToLower(appName))
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf(
			"event db type not supported, please select one of: %s",
			supportedEventDbs,
		)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if c.ChildBlockInterval < 2 {
		return fmt.Errorf("child block interval must be at least 2")
	}
	if c.RedisNumRetries <= 0 {
		return fmt.Errorf("redis number of retries must be a positive number")
	}
	if c.EventBufferSize < 0 {
		return fmt.Errorf("event buffer size must not be negative")
	}
	if c.DomainVerifyingContract != "" && !common.IsHexAddress(c.DomainVerifyingContract) {
		return fmt.Errorf("invalid domain verifying contract address")
	}
	if c.DomainSalt != "" {
		if _, err := parseHash(c.DomainSalt); err != nil {
			return fmt.Errorf("invalid domain salt: %s", err)
		}
	}
	if c.LogLevel < 0 || c.LogLevel > 6 {
		return fmt.Errorf("log level must be in range [0, 6]")
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

// DomainSeparator is the payment signature domain of this deployment.
func (c *Config) DomainSeparator() (payment.DomainSeparator, error) {
	var salt common.Hash
	if c.DomainSalt != "" {
		var err error
		if salt, err = parseHash(c.DomainSalt); err != nil {
			return payment.DomainSeparator{}, err
		}
	}
	return payment.NewDomainSeparator(
		c.DomainName, c.DomainVersion, common.HexToAddress(c.DomainVerifyingContract), salt,
	), nil
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.StandardLogger()

	switch c.EventDbType {
	case "inmemory":
		eventStoreConfig = []interface{}{c.EventBufferSize}
	case "postgres":
		eventStoreConfig = []interface{}{c.EventDbUrl, true}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "inmemory":
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, true}
	case "redis":
		dataStoreConfig = []interface{}{c.RedisUrl, c.RedisNumRetries}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	svc.Events().RegisterEventsHandler(domain.InFlightExitTopic, logEvents)

	c.repo = svc
	return nil
}

func (c *Config) appService() error {
	if c.repo == nil {
		if err := c.repoManager(); err != nil {
			return err
		}
	}
	if err := c.alertsService(); err != nil {
		return err
	}

	domainSeparator, err := c.DomainSeparator()
	if err != nil {
		return err
	}
	reg := registry.New()
	if err := payment.Register(reg, domainSeparator); err != nil {
		return err
	}

	svc, err := application.NewService(
		c.repo, reg, reg, payment.NewStateTransitionVerifier(), c.alerts, c.ChildBlockInterval,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) alertsService() error {
	if c.AlertManagerURL == "" {
		return nil
	}

	c.alerts = alertsmanager.NewService(c.AlertManagerURL, c.ExplorerURL)
	return nil
}

func logEvents(events []domain.Event) {
	for _, event := range events {
		if e, ok := event.(domain.InFlightExitStarted); ok {
			log.WithFields(log.Fields{
				"exit_id":   e.Id,
				"initiator": e.Initiator.Hex(),
				"tx_hash":   e.TxHash.Hex(),
			}).Info("in-flight exit started")
		}
	}
}

func parseHash(s string) (common.Hash, error) {
	buf, err := hexutil.Decode("0x" + strings.TrimPrefix(s, "0x"))
	if err != nil {
		return common.Hash{}, err
	}
	if len(buf) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(buf))
	}
	return common.BytesToHash(buf), nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

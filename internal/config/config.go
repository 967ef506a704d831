package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	DatabaseDSN      string        `env:"DATABASE_URI"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR"`
	Storage          string        `env:"STORAGE"`
	JWTSecret        string        `env:"JWT_SECRET"`
	TaxRate          string        `env:"TAX_RATE"`
	StorageTimeout   time.Duration `env:"STORAGE_TIMEOUT"`
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaOrdersTopic string        `env:"KAFKA_ORDERS_TOPIC"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	StoreName        string        `env:"STORE_NAME"`
}

// ParsedTaxRate ставка налога в виде десятичной дроби. Значение проверено в LoadConfig.
func (c *Config) ParsedTaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// String не раскрывает секреты при логировании конфигурации.
func (c *Config) String() string {
	return fmt.Sprintf(
		"{RunAddress:%s Storage:%s MigrationsDir:%s TaxRate:%s StorageTimeout:%s KafkaBrokers:%v "+
			"KafkaOrdersTopic:%s RedisAddr:%s StoreName:%q}",
		c.RunAddress,
		c.Storage,
		c.MigrationsDir,
		c.TaxRate,
		c.StorageTimeout,
		c.KafkaBrokers,
		c.KafkaOrdersTopic,
		c.RedisAddr,
		c.StoreName,
	)
}

func LoadConfig() (*Config, error) {
	return loadConfig(flag.CommandLine, os.Args[1:])
}

func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if flagsErr := loadFlags(fs, args, &flagsConfig); flagsErr != nil {
		return nil, fmt.Errorf("parse flags: %s", flagsErr.Error())
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if err := validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(fs *flag.FlagSet, args []string, flagConfig *Config) error {
	var brokers string

	fs.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	fs.StringVar(&flagConfig.Storage, "s", StoragePostgres, "Storage backend: postgres or memory")
	fs.StringVar(&flagConfig.JWTSecret, "j", "", "JWT secret for staff tokens")
	fs.StringVar(&flagConfig.TaxRate, "t", "0.08", "Tax rate included in prices")
	fs.DurationVar(&flagConfig.StorageTimeout, "st", 3*time.Second, "Storage operation timeout") //nolint:mnd
	fs.StringVar(&brokers, "k", "", "Comma separated kafka brokers")
	fs.StringVar(&flagConfig.KafkaOrdersTopic, "kt", "pos.orders.created", "Kafka topic for created orders")
	fs.StringVar(&flagConfig.RedisAddr, "r", "", "Redis address for idempotency keys")
	fs.StringVar(&flagConfig.StoreName, "n", "Groph POS", "Store name printed on receipts")

	if err := fs.Parse(args); err != nil {
		return err //nolint:wrapcheck
	}
	flagConfig.KafkaBrokers = splitList(brokers)
	return nil
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	conf := &Config{
		RunAddress:       defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:      defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:    defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		Storage:          defaultIfBlank(envConfig.Storage, flagsConfig.Storage),
		JWTSecret:        defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret),
		TaxRate:          defaultIfBlank(envConfig.TaxRate, flagsConfig.TaxRate),
		StorageTimeout:   envConfig.StorageTimeout,
		KafkaBrokers:     envConfig.KafkaBrokers,
		KafkaOrdersTopic: defaultIfBlank(envConfig.KafkaOrdersTopic, flagsConfig.KafkaOrdersTopic),
		RedisAddr:        defaultIfBlank(envConfig.RedisAddr, flagsConfig.RedisAddr),
		StoreName:        defaultIfBlank(envConfig.StoreName, flagsConfig.StoreName),
	}
	if conf.StorageTimeout == 0 {
		conf.StorageTimeout = flagsConfig.StorageTimeout
	}
	if len(conf.KafkaBrokers) == 0 {
		conf.KafkaBrokers = flagsConfig.KafkaBrokers
	}
	return conf
}

func validate(conf *Config) error {
	switch conf.Storage {
	case StoragePostgres:
		if conf.DatabaseDSN == "" {
			return errors.New("database DSN is not set")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage `%s`", conf.Storage)
	}

	if conf.JWTSecret == "" {
		return errors.New("jwt secret is not set")
	}

	rate, err := decimal.NewFromString(conf.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate `%s`: %s", conf.TaxRate, err.Error())
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be in [0, 1), got %s", rate)
	}
	if conf.StorageTimeout <= 0 {
		return errors.New("storage timeout must be positive")
	}
	return nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

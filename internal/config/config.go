package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ruralpay/ledgersim/internal/hsm"
	"github.com/ruralpay/ledgersim/internal/services"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingRegistrationFile is returned when no registration file was given.
var ErrMissingRegistrationFile = errors.New("config: registration file is required")

// RedisConfig holds the optional event publisher settings.
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      string
	Password  string
	DB        int
	EventsKey string `validate:"required_if=Enabled true"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// DBConfig holds database configuration
type DBConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Config is the resolved runtime configuration.
type Config struct {
	RegistrationFile string `validate:"required"`
	Verbose          bool
	Diagnostics      bool
	BankName         string `validate:"required"`
	Currency         string `validate:"len=3"`

	Fees         services.FeePolicy
	Horizon      uint64 `validate:"gt=0"`
	HistoryLimit int    `validate:"gt=0"`
	Argon2       hsm.Argon2Params

	AuditEnabled bool
	Redis        RedisConfig
	Database     DBConfig

	HTTPAddr   string
	JWTSecret  string
	ExportPath string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("log.diagnostics", false)
	v.SetDefault("bank.name", "281Bank")
	v.SetDefault("bank.currency", "USD")

	fees := services.DefaultFeePolicy()
	v.SetDefault("fee.divisor", fees.Divisor)
	v.SetDefault("fee.min", fees.Min)
	v.SetDefault("fee.max", fees.Max)
	v.SetDefault("fee.loyalty_threshold", fees.LoyaltyThreshold)
	v.SetDefault("fee.discount_numerator", fees.DiscountNumerator)
	v.SetDefault("fee.discount_denominator", fees.DiscountDenominator)

	v.SetDefault("schedule.horizon", services.DefaultHorizon)
	v.SetDefault("history.limit", services.DefaultHistoryLimit)

	argon := hsm.DefaultArgon2Params()
	v.SetDefault("argon2.time", argon.Time)
	v.SetDefault("argon2.memory", argon.Memory)
	v.SetDefault("argon2.threads", argon.Threads)
	v.SetDefault("argon2.key_length", argon.KeyLength)
	v.SetDefault("argon2.salt_length", argon.SaltLength)

	v.SetDefault("audit.enabled", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.events_key", "ledger_events")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "ledgersim")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("http.addr", "")
	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("export.path", "")
}

// NewFlagSet declares the command line flags.
func NewFlagSet(name string, output io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringP("file", "f", "", "registration file (ts|id|pin|balance per line)")
	fs.BoolP("verbose", "v", false, "print placement and settlement messages and enforce balance checks")
	fs.String("config", "", "optional config file (yaml, json, toml or .env)")
	fs.String("http-addr", "", "serve the read-only query API on this address after the run")
	fs.String("export", "", "write an end-of-run snapshot (.json, .yaml or .yml)")
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s -f <registration file> [-v] < commands\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// Load parses args into a validated Config. Precedence is flags, then LEDGERSIM_ environment
// variables, then the config file, then defaults. pflag.ErrHelp is returned for -h.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LEDGERSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	bindings := map[string]string{
		"registration.file": "file",
		"verbose":           "verbose",
		"http.addr":         "http-addr",
		"export.path":       "export",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	cfg := fromViper(v)
	if cfg.RegistrationFile == "" {
		return nil, ErrMissingRegistrationFile
	}
	if err := services.NewValidationHelper().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		RegistrationFile: v.GetString("registration.file"),
		Verbose:          v.GetBool("verbose"),
		Diagnostics:      v.GetBool("log.diagnostics"),
		BankName:         v.GetString("bank.name"),
		Currency:         v.GetString("bank.currency"),
		Fees: services.FeePolicy{
			Divisor:             v.GetUint64("fee.divisor"),
			Min:                 v.GetUint64("fee.min"),
			Max:                 v.GetUint64("fee.max"),
			LoyaltyThreshold:    v.GetUint64("fee.loyalty_threshold"),
			DiscountNumerator:   v.GetUint64("fee.discount_numerator"),
			DiscountDenominator: v.GetUint64("fee.discount_denominator"),
		},
		Horizon:      v.GetUint64("schedule.horizon"),
		HistoryLimit: v.GetInt("history.limit"),
		Argon2: hsm.Argon2Params{
			Time:       v.GetUint32("argon2.time"),
			Memory:     v.GetUint32("argon2.memory"),
			Threads:    uint8(v.GetUint("argon2.threads")),
			KeyLength:  v.GetUint32("argon2.key_length"),
			SaltLength: v.GetInt("argon2.salt_length"),
		},
		AuditEnabled: v.GetBool("audit.enabled"),
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetString("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			EventsKey: v.GetString("redis.events_key"),
		},
		Database: DBConfig{
			Enabled:         v.GetBool("database.enabled"),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		HTTPAddr:   v.GetString("http.addr"),
		JWTSecret:  v.GetString("jwt.secret_key"),
		ExportPath: v.GetString("export.path"),
	}
}

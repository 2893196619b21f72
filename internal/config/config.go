package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env     string
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Storage struct {
		Driver string // "postgres" | "sqlite"
	} `mapstructure:"storage"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	SQLite struct {
		Path string
	} `mapstructure:"sqlite"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Telegram struct {
		Token          string
		TimeoutSeconds int `mapstructure:"timeout_seconds"`
	} `mapstructure:"telegram"`

	Redis struct {
		Addr     string
		Password string
		DB       int
	} `mapstructure:"redis"`

	Reset struct {
		Enabled  bool
		Interval time.Duration
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"reset"`
}

// Load читает YAML и переопределения из окружения (APP_HTTP_ADDR и т.п.).
// .env в рабочем каталоге подхватывается заранее, если он есть.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("sqlite.path", "coffee.db")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.timeout_seconds", 30)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("reset.enabled", true)
	v.SetDefault("reset.interval", 15*time.Minute)
	v.SetDefault("reset.lock_ttl", time.Minute)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for storage.driver=postgres")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required for storage.driver=sqlite")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Reset.Enabled && c.Reset.Interval <= 0 {
		return errors.New("reset.interval must be positive")
	}
	return nil
}

package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - корневая структура конфигурации клиента и консоли.
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Reliability ReliabilityConfig `mapstructure:"reliability"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Refresh     RefreshConfig     `mapstructure:"refresh"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// APIConfig описывает удаленный CampusFace REST API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 - дефолт http.Client
	// Заголовок ngrok-skip-browser-warning нужен, пока API живет за ngrok
	SkipNgrokWarning bool `mapstructure:"skip_ngrok_warning"`
}

// ServerConfig описывает настройки HTTP-сервера консоли.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig описывает подключение к PostgreSQL для журнала решений.
// Пустой URL - журнал пишется только в лог.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (шина обновлений).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig - хранение сессии CLI.
type AuthConfig struct {
	SessionFile   string `mapstructure:"session_file"`
	SessionSecret string `mapstructure:"session_secret"`
}

// ReliabilityConfig - лимитер, предохранитель и ретраи для вызовов API.
type ReliabilityConfig struct {
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBMaxFailures uint32        `mapstructure:"cb_max_failures"`
	// ReadAttempts применяется только к идемпотентным GET. 1 - без повторов.
	ReadAttempts uint `mapstructure:"read_attempts"`
}

type ReconcileConfig struct {
	Rollback string `mapstructure:"rollback"` // per_item | snapshot
}

type RefreshConfig struct {
	Schedule string `mapstructure:"schedule"` // cron-выражение, пусто - выключено
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type TelemetryConfig struct {
	Tracing bool `mapstructure:"tracing"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// path может быть пустым - тогда ищем config.yaml в . и ./configs.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// CAMPUSFACE_API_BASE_URL перекроет api.base_url
	v.SetEnvPrefix("CAMPUSFACE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет - работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет то, без чего клиент не поедет.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	switch c.Reconcile.Rollback {
	case "per_item", "snapshot":
	default:
		return fmt.Errorf("config: reconcile.rollback must be per_item or snapshot, got %q", c.Reconcile.Rollback)
	}
	if c.Reliability.ReadAttempts == 0 {
		return errors.New("config: reliability.read_attempts must be >= 1")
	}
	return nil
}

// setDefaults регистрирует все ключи: AutomaticEnv работает в Unmarshal
// только для ключей, о которых viper знает.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.skip_ngrok_warning", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.session_file", "~/.campusface/session")
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("reliability.rate_limit", 20)
	v.SetDefault("reliability.rate_burst", 5)
	v.SetDefault("reliability.cb_max_requests", 3)
	v.SetDefault("reliability.cb_interval", 5*time.Second)
	v.SetDefault("reliability.cb_timeout", 30*time.Second)
	v.SetDefault("reliability.cb_max_failures", 5)
	v.SetDefault("reliability.read_attempts", 1)
	v.SetDefault("reconcile.rollback", "per_item")
	v.SetDefault("refresh.schedule", "")
	v.SetDefault("telemetry.tracing", false)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

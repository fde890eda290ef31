package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Orders   OrdersConfig
	Levels   LevelsConfig

	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PLAYCART_APP_ENV" required:"true"`
	Port         string `envconfig:"PLAYCART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PLAYCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLAYCART_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"PLAYCART_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PLAYCART_DB_DSN"`
	Driver string `envconfig:"PLAYCART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PLAYCART_DB_HOST"`
	Port     int    `envconfig:"PLAYCART_DB_PORT" default:"5432"`
	User     string `envconfig:"PLAYCART_DB_USER"`
	Password string `envconfig:"PLAYCART_DB_PASSWORD"`
	Name     string `envconfig:"PLAYCART_DB_NAME"`
	SSLMode  string `envconfig:"PLAYCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PLAYCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLAYCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLAYCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLAYCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PLAYCART_REDIS_URL"`
	Address      string        `envconfig:"PLAYCART_REDIS_ADDR"`
	Password     string        `envconfig:"PLAYCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLAYCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLAYCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLAYCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLAYCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLAYCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLAYCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PLAYCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PLAYCART_JWT_ISSUER" default:"playcart"`
	ExpirationMinutes int    `envconfig:"PLAYCART_JWT_EXPIRATION_MINUTES" default:"1440"`
	SessionTTLMinutes int    `envconfig:"PLAYCART_SESSION_TTL_MINUTES" default:"10080"`
}

// SessionTTL returns the redis session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PLAYCART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PLAYCART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PLAYCART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PLAYCART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PLAYCART_ARGON_KEY_LEN" default:"32"`
}

type OrdersConfig struct {
	ReturnWindow      time.Duration `envconfig:"PLAYCART_ORDERS_RETURN_WINDOW" default:"24h"`
	RefundRatePercent int           `envconfig:"PLAYCART_ORDERS_REFUND_RATE_PERCENT" default:"90"`
}

type LevelsConfig struct {
	MaxDiscountPercent int `envconfig:"PLAYCART_LEVELS_MAX_DISCOUNT_PERCENT" default:"15"`
}

// AuthRateLimitConfig bounds credential guessing on the auth endpoints.
type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"PLAYCART_AUTH_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit          int64         `envconfig:"PLAYCART_AUTH_LOGIN_IP_LIMIT" default:"20"`
	LoginUsernameLimit    int64         `envconfig:"PLAYCART_AUTH_LOGIN_USERNAME_LIMIT" default:"10"`
	RegisterWindow        time.Duration `envconfig:"PLAYCART_AUTH_REGISTER_WINDOW" default:"10m"`
	RegisterIPLimit       int64         `envconfig:"PLAYCART_AUTH_REGISTER_IP_LIMIT" default:"10"`
	RegisterUsernameLimit int64         `envconfig:"PLAYCART_AUTH_REGISTER_USERNAME_LIMIT" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"PLAYCART_DB_HOST": db.Host,
		"PLAYCART_DB_USER": db.User,
		"PLAYCART_DB_NAME": db.Name,
	}
	for _, key := range []string{"PLAYCART_DB_HOST", "PLAYCART_DB_USER", "PLAYCART_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either PLAYCART_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

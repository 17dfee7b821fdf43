package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Telegram TelegramConfig
	Jobs     JobsConfig
	Engine   EngineConfig
}

type AppConfig struct {
	Env            string
	Port           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver          string // mysql or sqlite
	DSN             string
	Host            string
	Port            string
	User            string
	Pass            string
	Name            string
	Params          string
	TLS             string
	TLSVerify       bool
	TLSCAPath       string
	TLSClientCert   string
	TLSClientKey    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	PingOnConnect   bool
}

type JWTConfig struct {
	Secret   string
	Audience string
	Issuer   string
	TTL      time.Duration
}

type RedisConfig struct {
	Addr        string
	Pass        string
	DB          int
	NotifyQueue string
}

type StorageConfig struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PresignExpiry time.Duration
}

func (s StorageConfig) Enabled() bool {
	return s.AccountID != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

type TelegramConfig struct {
	Token       string
	AdminChatID int64
}

type JobsConfig struct {
	ReconcileSpec string
	ExpireSpec    string
}

type EngineConfig struct {
	TxRetries      int
	MinWithdrawal  string
	FeedPageSize   int
	SimulatedSlots int
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.App.Env) == "development"
}

// Load reads .env (without overriding the process environment) and resolves
// every setting through viper.
func Load() (*Config, error) {
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:            v.GetString("ENV"),
			Port:           v.GetString("PORT"),
			RequestTimeout: time.Duration(v.GetInt("REQ_TIMEOUT_SEC")) * time.Second,
			MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
			CORSOrigins:    splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Pass:            v.GetString("DB_PASS"),
			Name:            v.GetString("DB_NAME"),
			Params:          v.GetString("DB_PARAMS"),
			TLS:             v.GetString("DB_TLS"),
			TLSVerify:       v.GetBool("DB_TLS_VERIFY"),
			TLSCAPath:       v.GetString("DB_TLS_CA_PATH"),
			TLSClientCert:   v.GetString("DB_TLS_CLIENT_CERT"),
			TLSClientKey:    v.GetString("DB_TLS_CLIENT_KEY"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnectRetries:  v.GetInt("DB_CONNECT_RETRIES"),
			PingOnConnect:   v.GetBool("DB_PING_ON_CONNECT"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			Audience: v.GetString("JWT_AUD"),
			Issuer:   v.GetString("JWT_ISS"),
			TTL:      time.Duration(v.GetInt("JWT_TTL_MIN")) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:        strings.ReplaceAll(v.GetString("REDIS_ADDR"), " ", ""),
			Pass:        v.GetString("REDIS_PASS"),
			DB:          v.GetInt("REDIS_DB"),
			NotifyQueue: v.GetString("REDIS_NOTIFY_QUEUE"),
		},
		Storage: StorageConfig{
			AccountID:     v.GetString("R2_ACCOUNT_ID"),
			AccessKey:     v.GetString("R2_ACCESS_KEY_ID"),
			SecretKey:     v.GetString("R2_SECRET_ACCESS_KEY"),
			Bucket:        v.GetString("R2_BUCKET_NAME"),
			PresignExpiry: time.Duration(v.GetInt("R2_PRESIGN_SEC")) * time.Second,
		},
		Telegram: TelegramConfig{
			Token:       v.GetString("TELEGRAM_BOT_TOKEN"),
			AdminChatID: v.GetInt64("TELEGRAM_ADMIN_CHAT_ID"),
		},
		Jobs: JobsConfig{
			ReconcileSpec: v.GetString("JOB_RECONCILE_SPEC"),
			ExpireSpec:    v.GetString("JOB_EXPIRE_SPEC"),
		},
		Engine: EngineConfig{
			TxRetries:      v.GetInt("ENGINE_TX_RETRIES"),
			MinWithdrawal:  v.GetString("MIN_WITHDRAWAL"),
			FeedPageSize:   v.GetInt("FEED_PAGE_SIZE"),
			SimulatedSlots: v.GetInt("SIMULATED_TASK_SLOTS"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQ_TIMEOUT_SEC", 10)
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_NAME", "taskearn")
	v.SetDefault("DB_PARAMS", "charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("DB_TLS", "false")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_PING_ON_CONNECT", true)

	v.SetDefault("JWT_TTL_MIN", 60*24)
	v.SetDefault("REDIS_NOTIFY_QUEUE", "notifications:outbound")
	v.SetDefault("R2_PRESIGN_SEC", 3600)

	// robfig/cron specs with a seconds field
	v.SetDefault("JOB_RECONCILE_SPEC", "0 0 3 * * *")
	v.SetDefault("JOB_EXPIRE_SPEC", "0 */5 * * * *")

	v.SetDefault("ENGINE_TX_RETRIES", 3)
	v.SetDefault("MIN_WITHDRAWAL", "10.00")
	v.SetDefault("FEED_PAGE_SIZE", 50)
	v.SetDefault("SIMULATED_TASK_SLOTS", 100)
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.JWT.Secret == "supersecretjwtkey" {
		return errors.New("JWT_SECRET must not use the sample value")
	}
	switch c.Database.Driver {
	case "mysql":
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "") {
			return errors.New("DB_HOST, DB_USER and DB_NAME are required for mysql")
		}
	case "sqlite":
		if c.Database.DSN == "" {
			return errors.New("DB_DSN is required for sqlite")
		}
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Results  ResultsConfig
	Metrics  MetricsConfig
	Docs     DocsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds what is needed to verify bearer tokens issued by the identity service.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ResultsConfig tunes the score store, caches and post-write warm-ups.
type ResultsConfig struct {
	ChunkSize            int
	ListLimit            int
	MaxListLimit         int
	ReadTimeout          time.Duration
	CacheEnabled         bool
	DistributionCacheTTL time.Duration
	WarmupEnabled        bool
	WarmupMaxJobs        int
	WarmupTimeout        time.Duration
	WarmupWorkers        int
	FallbackSessions     []string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// DocsConfig toggles the swagger UI.
type DocsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return FromViper(v), nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Results = ResultsConfig{
		ChunkSize:            positiveInt(v.GetInt("RESULTS_CHUNK_SIZE"), 20),
		ListLimit:            positiveInt(v.GetInt("RESULTS_LIST_LIMIT"), 500),
		MaxListLimit:         positiveInt(v.GetInt("RESULTS_MAX_LIST_LIMIT"), 2000),
		ReadTimeout:          parseDuration(v.GetString("RESULTS_READ_TIMEOUT"), 5*time.Second),
		CacheEnabled:         v.GetBool("RESULTS_CACHE_ENABLED"),
		DistributionCacheTTL: parseDuration(v.GetString("RESULTS_DISTRIBUTION_CACHE_TTL"), 10*time.Minute),
		WarmupEnabled:        v.GetBool("RESULTS_WARMUP_ENABLED"),
		WarmupMaxJobs:        positiveInt(v.GetInt("RESULTS_WARMUP_MAX_JOBS"), 3),
		WarmupTimeout:        parseDuration(v.GetString("RESULTS_WARMUP_TIMEOUT"), 2*time.Second),
		WarmupWorkers:        positiveInt(v.GetInt("RESULTS_WARMUP_WORKERS"), 1),
		FallbackSessions:     splitAndTrim(v.GetString("RESULTS_FALLBACK_SESSIONS")),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
		Path:    v.GetString("METRICS_PATH"),
	}

	cfg.Docs = DocsConfig{Enabled: v.GetBool("ENABLE_DOCS")}

	return cfg
}

// SetDefaults registers every default on v. Exposed so the admin CLI can share them.
func SetDefaults(v *viper.Viper) {
	setDefaults(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_results")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RESULTS_CHUNK_SIZE", 20)
	v.SetDefault("RESULTS_LIST_LIMIT", 500)
	v.SetDefault("RESULTS_MAX_LIST_LIMIT", 2000)
	v.SetDefault("RESULTS_READ_TIMEOUT", "5s")
	v.SetDefault("RESULTS_CACHE_ENABLED", true)
	v.SetDefault("RESULTS_DISTRIBUTION_CACHE_TTL", "10m")
	v.SetDefault("RESULTS_WARMUP_ENABLED", true)
	v.SetDefault("RESULTS_WARMUP_MAX_JOBS", 3)
	v.SetDefault("RESULTS_WARMUP_TIMEOUT", "2s")
	v.SetDefault("RESULTS_WARMUP_WORKERS", 1)
	v.SetDefault("RESULTS_FALLBACK_SESSIONS", "")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("METRICS_PATH", "/metrics")
	v.SetDefault("ENABLE_DOCS", false)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

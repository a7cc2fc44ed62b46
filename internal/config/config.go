package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Geocoder GeocoderConfig
	Postal   PostalConfig
	Tiles    TilesConfig
	Offline  OfflineConfig
	Search   SearchConfig
	Viewport ViewportConfig
	Session  SessionConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	// KeyPrefix - пространство ключей сервиса в общем Redis
	KeyPrefix string
	// StreamMaxLen - приблизительный предел длины стримов событий
	StreamMaxLen int64
}

type CacheConfig struct {
	TilesCacheTTL  time.Duration
	SearchCacheTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// GeocoderConfig - Nominatim-совместимый геокодер
type GeocoderConfig struct {
	BaseURL      string
	UserAgent    string
	RPS          float64
	Timeout      time.Duration
	CountryCodes string
}

// PostalConfig - источник почтовых индексов: viacep (HTTP) или postgres (локальная таблица)
type PostalConfig struct {
	Source  string
	BaseURL string
	Timeout time.Duration
}

type TilesConfig struct {
	Style        string
	Store        string
	StorePath    string
	FetchTimeout time.Duration
	UserAgent    string
}

type OfflineConfig struct {
	MinZoom          int
	MaxZoom          int
	ConfirmThreshold int
	HighThreshold    int
	BatchSize        int
	ProgressEvery    int
	DisplayInterval  time.Duration
}

type SearchConfig struct {
	Debounce  time.Duration
	MinLength int
	Limit     int
}

type ViewportConfig struct {
	MinZoom int
	MaxZoom int
	FlyZoom int
}

type SessionConfig struct {
	IdleTTL time.Duration
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	BatchSize         int
	MaxRetries        int
	AutoConfirmMax    int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// .env необязателен: в контейнере всё приходит через окружение
	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),

			CORSOrigins: viper.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:      viper.GetString("REDIS_HOST"),
			Port:      viper.GetInt("REDIS_PORT"),
			Password:  viper.GetString("REDIS_PASSWORD"),
			DB:        viper.GetInt("REDIS_DB"),
			PoolSize:  viper.GetInt("REDIS_POOL_SIZE"),
			KeyPrefix: viper.GetString("REDIS_KEY_PREFIX"),

			StreamMaxLen: viper.GetInt64("REDIS_STREAM_MAX_LEN"),
		},
		Cache: CacheConfig{
			TilesCacheTTL:  time.Duration(viper.GetInt("TILES_CACHE_TTL")) * time.Second,
			SearchCacheTTL: time.Duration(viper.GetInt("SEARCH_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:      viper.GetString("GEOCODER_BASE_URL"),
			UserAgent:    viper.GetString("GEOCODER_USER_AGENT"),
			RPS:          viper.GetFloat64("GEOCODER_RPS"),
			Timeout:      time.Duration(viper.GetInt("GEOCODER_TIMEOUT")) * time.Second,
			CountryCodes: viper.GetString("GEOCODER_COUNTRY_CODES"),
		},
		Postal: PostalConfig{
			Source:  strings.ToLower(viper.GetString("POSTAL_SOURCE")),
			BaseURL: viper.GetString("POSTAL_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("POSTAL_TIMEOUT")) * time.Second,
		},
		Tiles: TilesConfig{
			Style:        strings.ToLower(viper.GetString("TILE_STYLE")),
			Store:        strings.ToLower(viper.GetString("TILE_STORE")),
			StorePath:    viper.GetString("TILE_STORE_PATH"),
			FetchTimeout: time.Duration(viper.GetInt("TILE_FETCH_TIMEOUT")) * time.Second,
			UserAgent:    viper.GetString("TILE_USER_AGENT"),
		},
		Offline: OfflineConfig{
			MinZoom:          viper.GetInt("OFFLINE_MIN_ZOOM"),
			MaxZoom:          viper.GetInt("OFFLINE_MAX_ZOOM"),
			ConfirmThreshold: viper.GetInt("OFFLINE_CONFIRM_THRESHOLD"),
			HighThreshold:    viper.GetInt("OFFLINE_HIGH_THRESHOLD"),
			BatchSize:        viper.GetInt("OFFLINE_BATCH_SIZE"),
			ProgressEvery:    viper.GetInt("OFFLINE_PROGRESS_EVERY"),
			DisplayInterval:  time.Duration(viper.GetInt("OFFLINE_DISPLAY_INTERVAL_MS")) * time.Millisecond,
		},
		Search: SearchConfig{
			Debounce:  time.Duration(viper.GetInt("SEARCH_DEBOUNCE_MS")) * time.Millisecond,
			MinLength: viper.GetInt("SEARCH_MIN_LENGTH"),
			Limit:     viper.GetInt("SEARCH_LIMIT"),
		},
		Viewport: ViewportConfig{
			MinZoom: viper.GetInt("VIEWPORT_MIN_ZOOM"),
			MaxZoom: viper.GetInt("VIEWPORT_MAX_ZOOM"),
			FlyZoom: viper.GetInt("VIEWPORT_FLY_ZOOM"),
		},
		Session: SessionConfig{
			IdleTTL: time.Duration(viper.GetInt("SESSION_IDLE_TTL")) * time.Second,
		},
		Worker: WorkerConfig{
			Enabled:           viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     viper.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(viper.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			BatchSize:         viper.GetInt("WORKER_BATCH_SIZE"),
			MaxRetries:        viper.GetInt("WORKER_MAX_RETRIES"),
			AutoConfirmMax:    viper.GetInt("WORKER_AUTO_CONFIRM_MAX"),
		},
	}

	cfg.applyDefaults()

	return cfg, nil
}

// Set default values if not provided
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 2
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 20
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "geopin"
	}
	if c.Redis.StreamMaxLen == 0 {
		c.Redis.StreamMaxLen = 10000
	}
	if c.Cache.TilesCacheTTL == 0 {
		c.Cache.TilesCacheTTL = 30 * 24 * time.Hour
	}
	if c.Cache.SearchCacheTTL == 0 {
		c.Cache.SearchCacheTTL = 24 * time.Hour
	}

	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = "geopin-service/1.0"
	}
	if c.Geocoder.RPS == 0 {
		c.Geocoder.RPS = 1
	}
	if c.Geocoder.Timeout == 0 {
		c.Geocoder.Timeout = 10 * time.Second
	}
	if c.Geocoder.CountryCodes == "" {
		c.Geocoder.CountryCodes = "br"
	}

	if c.Postal.Source == "" {
		c.Postal.Source = "viacep"
	}
	if c.Postal.BaseURL == "" {
		c.Postal.BaseURL = "https://viacep.com.br"
	}
	if c.Postal.Timeout == 0 {
		c.Postal.Timeout = 10 * time.Second
	}

	if c.Tiles.Style == "" {
		c.Tiles.Style = "standard"
	}
	if c.Tiles.Store == "" {
		c.Tiles.Store = "bolt"
	}
	if c.Tiles.StorePath == "" {
		c.Tiles.StorePath = "data/tiles.db"
	}
	if c.Tiles.FetchTimeout == 0 {
		c.Tiles.FetchTimeout = 15 * time.Second
	}
	if c.Tiles.UserAgent == "" {
		c.Tiles.UserAgent = c.Geocoder.UserAgent
	}

	if c.Offline.MinZoom == 0 && c.Offline.MaxZoom == 0 {
		c.Offline.MinZoom, c.Offline.MaxZoom = 14, 18
	}
	if c.Offline.ConfirmThreshold == 0 {
		c.Offline.ConfirmThreshold = 2000
	}
	if c.Offline.HighThreshold == 0 {
		c.Offline.HighThreshold = 10000
	}
	if c.Offline.BatchSize == 0 {
		c.Offline.BatchSize = 12
	}
	if c.Offline.ProgressEvery == 0 {
		c.Offline.ProgressEvery = 5
	}
	if c.Offline.DisplayInterval == 0 {
		c.Offline.DisplayInterval = 3 * time.Second
	}

	if c.Search.Debounce == 0 {
		c.Search.Debounce = 800 * time.Millisecond
	}
	if c.Search.MinLength == 0 {
		c.Search.MinLength = 3
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = 5
	}

	if c.Viewport.MinZoom == 0 {
		c.Viewport.MinZoom = 3
	}
	if c.Viewport.MaxZoom == 0 {
		c.Viewport.MaxZoom = 19
	}
	if c.Viewport.FlyZoom == 0 {
		c.Viewport.FlyZoom = 18
	}

	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = 30 * time.Minute
	}

	if c.Worker.ConsumerGroup == "" {
		c.Worker.ConsumerGroup = "tile-prefetch-workers"
	}
	if c.Worker.StreamReadTimeout == 0 {
		c.Worker.StreamReadTimeout = 5000 * time.Millisecond
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 4
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.AutoConfirmMax == 0 {
		c.Worker.AutoConfirmMax = c.Offline.HighThreshold
	}
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DSN - строка подключения для драйвера pgx
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Cheertaboi/shipping-service/internal/geo"
)

// Config holds all service configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Geo      GeoConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects the active rate cache: "memory", "redis" or "none".
type CacheConfig struct {
	Driver string
	TTL    time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestTimeout    time.Duration
	SimulationWorkers int
}

// GeoConfig overrides entries of the built-in lookup tables.
type GeoConfig struct {
	ZipPrefixes   map[string]string
	DeliveryTimes map[string]geo.DeliveryTimeRange
}

// Table returns the built-in geo table with the configured overrides applied.
func (g GeoConfig) Table() *geo.Table {
	return geo.DefaultTable().WithOverrides(g.ZipPrefixes, g.DeliveryTimes)
}

// Load loads configuration from config.toml and environment variables.
// Environment variables use the SHIPPING_ prefix (e.g. SHIPPING_DATABASE_HOST)
// and take precedence over the file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHIPPING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(v.GetString("cache.driver")),
			TTL:    v.GetDuration("cache.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			RequestTimeout:    v.GetDuration("http.request_timeout"),
			SimulationWorkers: v.GetInt("http.simulation_workers"),
		},
		Geo: GeoConfig{
			ZipPrefixes:   v.GetStringMapString("geo.zip_prefixes"),
			DeliveryTimes: map[string]geo.DeliveryTimeRange{},
		},
	}

	for uf := range v.GetStringMap("geo.delivery_times") {
		key := "geo.delivery_times." + uf
		cfg.Geo.DeliveryTimes[strings.ToUpper(uf)] = geo.DeliveryTimeRange{
			MinDays: v.GetInt(key + ".min_days"),
			MaxDays: v.GetInt(key + ".max_days"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "shipping-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "shipping")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.request_timeout", 8*time.Second)
	v.SetDefault("http.simulation_workers", 4)
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid cache.driver %q: want memory, redis or none", c.Cache.Driver)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d", c.Database.Port)
	}
	if c.App.Port == "" {
		return fmt.Errorf("app.port is required")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

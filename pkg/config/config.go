package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "BLOOMCART"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Orders  OrdersConfig  `mapstructure:"orders"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// Mode is the gin mode: debug, release or test. Release hides internal error detail.
	Mode string `mapstructure:"mode"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type EtcdConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	PoolSize   int           `mapstructure:"pool_size"`
	CatalogTTL time.Duration `mapstructure:"catalog_ttl"`
}

// MySQLConfig configures the audit trail sink. An empty host disables it.
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MongoDBConfig struct {
	URI               string        `mapstructure:"uri"`
	Database          string        `mapstructure:"database"`
	Collection        string        `mapstructure:"collection"`
	FlowersCollection string        `mapstructure:"flowers_collection"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	RoleClaim string `mapstructure:"role_claim"`
}

type OrdersConfig struct {
	// FreezeTerminal stops non-admins from moving delivered or cancelled orders.
	FreezeTerminal bool `mapstructure:"freeze_terminal"`
}

type SweepConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// ErrMissingSettings is returned by Load when required settings are absent.
var ErrMissingSettings = errors.New("config: missing required settings")

// Load reads the YAML file at configPath (optional when empty or absent), applies
// BLOOMCART_* environment overrides and validates required settings. A .env file in
// the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports every required setting that is blank.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.MongoDB.URI) == "" {
		missing = append(missing, "mongodb.uri")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		missing = append(missing, "auth.jwt_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSettings, strings.Join(missing, ", "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "order-service")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4040)
	v.SetDefault("server.mode", "release")

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50052)

	v.SetDefault("etcd.enabled", false)
	v.SetDefault("etcd.endpoints", []string{"localhost:2379"})
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.catalog_ttl", 10*time.Minute)

	v.SetDefault("mysql.host", "")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.username", "")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "bloomcart_audit")
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.max_open_conns", 20)

	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "bloomcart")
	v.SetDefault("mongodb.collection", "orders")
	v.SetDefault("mongodb.flowers_collection", "flowers")
	v.SetDefault("mongodb.timeout", 10*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.role_claim", "role")

	v.SetDefault("orders.freeze_terminal", false)

	v.SetDefault("sweep.enabled", false)
	v.SetDefault("sweep.schedule", "@every 1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Enabled reports whether the audit sink is configured.
func (c *MySQLConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

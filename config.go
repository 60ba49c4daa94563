package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported storage and events drivers.
const (
	StoragePostgres = "postgres"
	StorageBolt     = "bolt"
	StorageRedis    = "redis"

	EventsNone  = "none"
	EventsRedis = "redis"
	EventsKafka = "kafka"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"BOOKS_GIT_COMMIT"`
	GitTag                  string         `yaml:"git_tag" envconfig:"BOOKS_GIT_TAG"`
	BuildTime               string         `yaml:"build_time" envconfig:"BOOKS_BUILD_TIME"`
	IsProduction            bool           `yaml:"is_production" envconfig:"BOOKS_IS_PRODUCTION"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"BOOKS_LOG_LEVEL"`
	LogFile                 string         `yaml:"log_file" envconfig:"BOOKS_LOG_FILE"`
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"BOOKS_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"BOOKS_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig   `yaml:"server"`
	Storage                 StorageConfig  `yaml:"storage"`
	Postgres                PostgresConfig `yaml:"postgres"`
	Redis                   RedisConfig    `yaml:"redis"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb"`
	Events                  EventsConfig   `yaml:"events"`
	Kafka                   KafkaConfig    `yaml:"kafka"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BOOKS_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"BOOKS_SERVER_PORT"`
	APIPrefix       string        `yaml:"api_prefix" envconfig:"BOOKS_SERVER_API_PREFIX"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BOOKS_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BOOKS_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BOOKS_SERVER_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BOOKS_SERVER_SHUTDOWN_TIMEOUT"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"BOOKS_STORAGE_DRIVER"`
}

type PostgresConfig struct {
	Host           string        `yaml:"host" envconfig:"BOOKS_POSTGRES_HOST"`
	Port           string        `yaml:"port" envconfig:"BOOKS_POSTGRES_PORT"`
	Username       string        `yaml:"username" envconfig:"BOOKS_POSTGRES_USERNAME"`
	Password       string        `yaml:"password" envconfig:"BOOKS_POSTGRES_PASSWORD" json:"-"`
	Database       string        `yaml:"database" envconfig:"BOOKS_POSTGRES_DATABASE"`
	SSLMode        string        `yaml:"ssl_mode" envconfig:"BOOKS_POSTGRES_SSL_MODE"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"BOOKS_POSTGRES_MAX_CONNS"`
	MinConns       int32         `yaml:"min_conns" envconfig:"BOOKS_POSTGRES_MIN_CONNS"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"BOOKS_POSTGRES_CONNECT_TIMEOUT"`
	QueryTimeout   time.Duration `yaml:"query_timeout" envconfig:"BOOKS_POSTGRES_QUERY_TIMEOUT"`
	AutoMigrate    bool          `yaml:"auto_migrate" envconfig:"BOOKS_POSTGRES_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BOOKS_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BOOKS_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BOOKS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BOOKS_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BOOKS_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BOOKS_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BOOKS_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BOOKS_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BOOKS_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BOOKS_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BOOKS_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BOOKS_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BOOKS_BOLTDB_BUCKET_NAME"`
}

// EventsConfig selects where books changes are published. The mirror
// replays the redis queues into the boltdb file defined under `boltdb`.
type EventsConfig struct {
	Driver       string        `yaml:"driver" envconfig:"BOOKS_EVENTS_DRIVER"`
	MirrorEnable bool          `yaml:"mirror_enable" envconfig:"BOOKS_EVENTS_MIRROR_ENABLE"`
	PopTimeout   time.Duration `yaml:"pop_timeout" envconfig:"BOOKS_EVENTS_POP_TIMEOUT"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers" envconfig:"BOOKS_KAFKA_BROKERS"`
	Topic        string        `yaml:"topic" envconfig:"BOOKS_KAFKA_TOPIC"`
	BatchTimeout time.Duration `yaml:"batch_timeout" envconfig:"BOOKS_KAFKA_BATCH_TIMEOUT"`
}

// DSN builds the postgres connection url.
func (pc PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(pc.Username, pc.Password),
		Host:   pc.Host + ":" + pc.Port,
		Path:   "/" + pc.Database,
	}
	if pc.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{pc.SSLMode}}.Encode()
	}
	return u.String()
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Port) == 0 {
		return errors.New("make sure to set a valid server port in configuration file")
	}

	config.Server.APIPrefix = "/" + strings.Trim(config.Server.APIPrefix, "/")
	if config.Server.APIPrefix == "/" {
		config.Server.APIPrefix = ""
	}

	if config.Storage.Driver == "" {
		config.Storage.Driver = StoragePostgres
	}

	switch config.Storage.Driver {
	case StoragePostgres:
		if len(config.Postgres.Host) == 0 || len(config.Postgres.Port) == 0 || len(config.Postgres.Database) == 0 {
			return errors.New("make sure to set valid postgres address, port and database in configuration file")
		}
		if config.Postgres.QueryTimeout == 0 {
			config.Postgres.QueryTimeout = 5 * time.Second
		}
	case StorageBolt:
		if err := checkBoltDBConfig(&config.BoltDB); err != nil {
			return err
		}
	case StorageRedis:
		if err := checkRedisConfig(&config.Redis); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.Events.Driver == "" {
		config.Events.Driver = EventsNone
	}

	switch config.Events.Driver {
	case EventsNone:
	case EventsRedis:
		if err := checkRedisConfig(&config.Redis); err != nil {
			return err
		}
		if config.Events.PopTimeout == 0 {
			config.Events.PopTimeout = time.Second
		}
	case EventsKafka:
		if len(config.Kafka.Brokers) == 0 || len(config.Kafka.Topic) == 0 {
			return errors.New("make sure to set valid kafka brokers and topic in configuration file")
		}
	default:
		return fmt.Errorf("unsupported events driver %q", config.Events.Driver)
	}

	if config.Events.MirrorEnable {
		if config.Events.Driver != EventsRedis {
			return errors.New("boltdb mirror requires the redis events driver")
		}
		if config.Storage.Driver == StorageBolt {
			return errors.New("boltdb mirror cannot be used with the bolt storage driver")
		}
		if err := checkBoltDBConfig(&config.BoltDB); err != nil {
			return err
		}
	}

	return nil
}

func checkRedisConfig(rc *RedisConfig) error {
	if len(rc.Host) == 0 || len(rc.Port) == 0 {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}
	return nil
}

func checkBoltDBConfig(bc *BoltDBConfig) error {
	if len(bc.FilePath) == 0 || len(bc.BucketName) == 0 {
		return errors.New("make sure to set valid boltdb file path and bucket name in configuration file")
	}
	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	// Use environment variables with prefix `BOOKS`.
	err = LoadConfigEnvs("BOOKS", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}

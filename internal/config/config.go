package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/manobala/peer-chat/pkg/config"
	"github.com/manobala/peer-chat/pkg/database"
	"github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Poll      PollConfig
	Chat      ChatConfig
	Events    pubsub.Config
	CORS      CORSConfig `mapstructure:"cors"`
	Log       log.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// ToDatabaseConfig converts to the shared database config.
func (d DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		DBName:          d.DBName,
		SSLMode:         d.SSLMode,
		FilePath:        d.FilePath,
		MaxIdleConns:    d.MaxIdleConns,
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		LogLevel:        d.LogLevel,
	}
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	RoomsTTL time.Duration `mapstructure:"rooms_ttl"`
	UserTTL  time.Duration `mapstructure:"user_ttl"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
}

type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	SendBufferSize  int           `mapstructure:"send_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
}

type PollConfig struct {
	Wait        time.Duration
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MaxBatch    int           `mapstructure:"max_batch"`
}

type ChatConfig struct {
	PageSize      int           `mapstructure:"page_size"`
	MaxPageSize   int           `mapstructure:"max_page_size"`
	TypingTTL     time.Duration `mapstructure:"typing_ttl"`
	PreviewLength int           `mapstructure:"preview_length"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Env lists arrive as a single comma separated string.
	if origins := pkgconfig.StringList(v, "cors.allowed_origins"); len(origins) > 0 {
		cfg.CORS.AllowedOrigins = origins
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "peer_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./peer_chat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.rooms_ttl", "30s")
	v.SetDefault("cache.user_ttl", "10m")

	v.SetDefault("auth.issuer", "")

	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.send_buffer_size", 256)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_interval", "54s")

	v.SetDefault("poll.wait", "25s")
	v.SetDefault("poll.idle_timeout", "60s")
	v.SetDefault("poll.max_batch", 64)

	v.SetDefault("chat.page_size", 50)
	v.SetDefault("chat.max_page_size", 100)
	v.SetDefault("chat.typing_ttl", "3s")
	v.SetDefault("chat.preview_length", 120)
	v.SetDefault("chat.store_timeout", "5s")

	defaults := pubsub.DefaultConfig()
	v.SetDefault("events.driver", defaults.Driver)
	v.SetDefault("events.queue_size", defaults.QueueSize)
	v.SetDefault("events.redis.address", defaults.Redis.Address)
	v.SetDefault("events.redis.pool_size", defaults.Redis.PoolSize)
	v.SetDefault("events.redis.dial_timeout", defaults.Redis.DialTimeout)
	v.SetDefault("events.redis.write_timeout", defaults.Redis.WriteTimeout)
	v.SetDefault("events.kafka.brokers", defaults.Kafka.Brokers)
	v.SetDefault("events.kafka.partitions", defaults.Kafka.Partitions)
	v.SetDefault("events.kafka.acks", defaults.Kafka.Acks)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.service_name", "peer-chat")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("events.redis.address", "EVENTS_REDIS_ADDRESS")
	v.BindEnv("events.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("events.kafka.topic_prefix", "KAFKA_TOPIC_PREFIX")
	v.BindEnv("cors.allowed_origins", "CLIENT_URL")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
}

package config

import "time"

// Provider kinds.
const (
	ProviderLocal  = "local"
	ProviderDocker = "docker"
	ProviderNoop   = "noop"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds coordinator configuration values.
type Config struct {
	LogLevel    string            `mapstructure:"log_level" yaml:"log_level" validate:"required"`
	DataDir     string            `mapstructure:"data_dir" yaml:"data_dir"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator" yaml:"coordinator"`
	Matchmaker  MatchmakerConfig  `mapstructure:"matchmaker" yaml:"matchmaker"`
	Provider    ProviderConfig    `mapstructure:"provider" yaml:"provider"`
	JWT         JWTConfig         `mapstructure:"jwt" yaml:"jwt"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
}

// CoordinatorConfig drives the control loop and its inbound listener.
type CoordinatorConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	TickInterval      time.Duration `mapstructure:"tick_interval" yaml:"tick_interval" validate:"gt=0"`
	StopTimeout       time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout" validate:"gt=0"`
	// MessagesPerMinute limits inbound websocket messages per connection. Zero disables the limit.
	MessagesPerMinute int `mapstructure:"messages_per_minute" yaml:"messages_per_minute" validate:"gte=0"`
}

// MatchmakerConfig tunes grouping.
type MatchmakerConfig struct {
	MaxRankDifference int    `mapstructure:"max_rank_difference" yaml:"max_rank_difference" validate:"gte=0"`
	Ruleset           string `mapstructure:"ruleset" yaml:"ruleset" validate:"required"`
}

// ProviderConfig selects and bounds the node backend.
type ProviderConfig struct {
	Kind        string        `mapstructure:"kind" yaml:"kind" validate:"oneof=local docker noop"`
	MaxNodes    int           `mapstructure:"max_nodes" yaml:"max_nodes" validate:"gte=0"`
	MinPort     int           `mapstructure:"min_port" yaml:"min_port" validate:"gte=0,lte=65535"`
	MaxPort     int           `mapstructure:"max_port" yaml:"max_port" validate:"gte=0,lte=65535,gtefield=MinPort"`
	NodeTimeout time.Duration `mapstructure:"node_timeout" yaml:"node_timeout" validate:"gt=0"`
	Host        string        `mapstructure:"host" yaml:"host"`
	// Image is the worker container image used by the docker backend.
	Image string `mapstructure:"image" yaml:"image" validate:"required_if=Kind docker"`
}

// JWTConfig points at the public key material used to verify player tokens.
type JWTConfig struct {
	PublicKeyPath string   `mapstructure:"public_key_path" yaml:"public_key_path" validate:"required"`
	Algorithms    []string `mapstructure:"algorithms" yaml:"algorithms" validate:"min=1"`
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`
	Path   string `mapstructure:"path" yaml:"path" validate:"required_if=Driver sqlite"`
	DSN    string `mapstructure:"dsn" yaml:"dsn" validate:"required_if=Driver postgres"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		DataDir:  "data",
		Coordinator: CoordinatorConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			TickInterval:      5 * time.Second,
			StopTimeout:       30 * time.Second,
			MessagesPerMinute: 120,
		},
		Matchmaker: MatchmakerConfig{
			MaxRankDifference: 500,
			Ruleset:           "standard",
		},
		Provider: ProviderConfig{
			Kind:        ProviderLocal,
			MaxNodes:    10,
			MinPort:     0,
			MaxPort:     0,
			NodeTimeout: 10 * time.Minute,
		},
		JWT: JWTConfig{
			PublicKeyPath: "certs/jwt.pub",
			Algorithms:    []string{"RS256"},
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "arena.db",
		},
	}
}

package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
)

// Config holds Registry Service configuration
type Config struct {
	Server Server        `json:"server" yaml:"server"`
	Ledger Ledger        `json:"ledger" yaml:"ledger"`
	WAL    WAL           `json:"wal" yaml:"wal"`
	Mirror Mirror        `json:"mirror" yaml:"mirror"`
	Redis  Redis         `json:"redis" yaml:"redis"`
	Logger logger.Config `json:"logger" yaml:"logger"`
}

type Server struct {
	Addr string `json:"addr" yaml:"addr"`
}

type Ledger struct {
	// AdminAddress is the only principal allowed to change the fee rate.
	AdminAddress string `json:"admin_address" yaml:"admin_address"`
	// FeePerByte is the initial rate in wei, as a decimal string.
	FeePerByte string `json:"fee_per_byte" yaml:"fee_per_byte"`
}

type WAL struct {
	Dir                 string `json:"dir" yaml:"dir"`
	MaxSegmentSizeBytes int64  `json:"max_segment_size_bytes" yaml:"max_segment_size_bytes"`
	FSync               bool   `json:"fsync" yaml:"fsync"`
}

type Mirror struct {
	Enabled   bool `json:"enabled" yaml:"enabled"`
	Workers   int  `json:"workers" yaml:"workers"`
	QueueSize int  `json:"queue_size" yaml:"queue_size"`
	// RebuildOnStart repopulates redis from the replayed event log.
	RebuildOnStart bool `json:"rebuild_on_start" yaml:"rebuild_on_start"`
}

type Redis struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Addr: ":8090",
		},
		Ledger: Ledger{
			AdminAddress: "0x000000000000000000000000000000000000dEaD",
			FeePerByte:   "100",
		},
		WAL: WAL{
			Dir:                 "data/wal",
			MaxSegmentSizeBytes: 16 * 1024 * 1024, // 16MB
			FSync:               true,
		},
		Mirror: Mirror{
			Enabled:        true,
			Workers:        2,
			QueueSize:      256,
			RebuildOnStart: false,
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "registry", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		log.Printf("Config file not found or failed to parse, using defaults if file not specified. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		return cfg, nil
	}

	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

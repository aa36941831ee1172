package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

type Configuration struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Storage  StorageConfig  `json:"storage"`
	IPFS     IPFSConfig     `json:"ipfs"`
	Recovery RecoveryConfig `json:"recovery"`
	Logging  LoggingConfig  `json:"logging"`
}

type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

type DatabaseConfig struct {
	Host            string `json:"host"`
	Port            string `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	SSLMode         string `json:"ssl_mode"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	MaxOpenConns    int    `json:"max_open_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime"`
}

type StorageConfig struct {
	// BasePath is the mount point of the encrypted-at-rest volume.
	BasePath string `json:"base_path"`
}

type IPFSConfig struct {
	// NodeAPI is an optional local IPFS node API endpoint tried before the
	// public gateways, e.g. "127.0.0.1:5001".
	NodeAPI        string        `json:"node_api"`
	Gateways       []string      `json:"gateways"`
	GatewayTimeout time.Duration `json:"gateway_timeout"`
}

type RecoveryConfig struct {
	BatchSize int           `json:"batch_size"`
	ItemDelay time.Duration `json:"item_delay"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	Environment string `json:"environment"`
}

// Load reads a JSON config file and applies defaults for missing fields.
// An empty path returns the defaults alone.
func Load(filePath string) (*Configuration, error) {
	cfg := Defaults()

	if filePath != "" {
		file, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	applyDefaults(cfg)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dsn := os.Getenv("STORAGE_BASE_PATH"); dsn != "" {
		cfg.Storage.BasePath = dsn
	}
	return cfg, nil
}

func Defaults() *Configuration {
	return &Configuration{
		Server: ServerConfig{
			Port:         "8000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			Username:        "postgres",
			Password:        "password",
			Name:            "notice_service",
			SSLMode:         "disable",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 300,
		},
		Storage: StorageConfig{
			BasePath: "/var/lib/notice-service",
		},
		IPFS: IPFSConfig{
			Gateways: []string{
				"https://gateway.pinata.cloud/ipfs",
				"https://ipfs.io/ipfs",
				"https://cloudflare-ipfs.com/ipfs",
			},
			GatewayTimeout: 15 * time.Second,
		},
		Recovery: RecoveryConfig{
			BatchSize: 10,
			ItemDelay: time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Environment: "development",
		},
	}
}

func applyDefaults(cfg *Configuration) {
	defaults := Defaults()
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaults.Server.IdleTimeout
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = defaults.Storage.BasePath
	}
	if len(cfg.IPFS.Gateways) == 0 {
		cfg.IPFS.Gateways = defaults.IPFS.Gateways
	}
	if cfg.IPFS.GatewayTimeout == 0 {
		cfg.IPFS.GatewayTimeout = defaults.IPFS.GatewayTimeout
	}
	if cfg.Recovery.BatchSize == 0 {
		cfg.Recovery.BatchSize = defaults.Recovery.BatchSize
	}
	if cfg.Recovery.ItemDelay == 0 {
		cfg.Recovery.ItemDelay = defaults.Recovery.ItemDelay
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}

// LogConfig writes the effective configuration with secrets redacted.
func LogConfig(cfg *Configuration, logger *zap.Logger) {
	logger.Info("Application configuration",
		zap.String("port", cfg.Server.Port),
		zap.Duration("read_timeout", cfg.Server.ReadTimeout),
		zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Name),
		zap.String("storage_base_path", cfg.Storage.BasePath),
		zap.Strings("ipfs_gateways", cfg.IPFS.Gateways),
		zap.Duration("gateway_timeout", cfg.IPFS.GatewayTimeout),
		zap.Int("recovery_batch_size", cfg.Recovery.BatchSize),
	)
}

package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type ConfigParam struct {
	ServerPort string `toml:"server_port"`
	HandleCORS bool   `toml:"handle_cors"`

	DBHost     string `toml:"db_host"`
	DBPort     string `toml:"db_port"`
	DBName     string `toml:"db_name"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBSSLMode  string `toml:"db_sslmode"`

	// Bounds of the asset-number allocation pool.
	AssetNumberMin int64 `toml:"asset_number_min"`
	AssetNumberMax int64 `toml:"asset_number_max"`

	// Base URL of the PDU controller endpoint; empty disables the push.
	PDUControllerURL     string `toml:"pdu_controller_url"`
	PDUControllerTimeout string `toml:"pdu_controller_timeout"`
}

var cfg *ConfigParam

func Config() *ConfigParam {
	if cfg == nil {
		cfg = defaults()
	}
	return cfg
}

func defaults() *ConfigParam {
	return &ConfigParam{
		ServerPort:           "8420",
		HandleCORS:           true,
		DBHost:               "localhost",
		DBPort:               "5432",
		DBName:               "rackd",
		DBUser:               "rackd",
		DBSSLMode:            "disable",
		AssetNumberMin:       100000,
		AssetNumberMax:       999999,
		PDUControllerTimeout: "5s",
	}
}

func LoadConfig(filename string) error {
	if filename == "" {
		cfg = defaults()
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	cp := defaults()
	if _, err := toml.Decode(string(content), cp); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}
	if cp.AssetNumberMin >= cp.AssetNumberMax {
		return fmt.Errorf("asset number pool is empty: min %d >= max %d", cp.AssetNumberMin, cp.AssetNumberMax)
	}
	cfg = cp
	return nil
}

// Dsn renders the Postgres connection string for the configured database.
func Dsn() string {
	c := Config()
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode)
}

package config

import (
	"fmt"
	"strings"
	"waste-dispatch-service/internal/platform/db"
)

// DatabaseConfig selects the ledger store.
type DatabaseConfig struct {
	// Driver is "sqlite" (modernc) or "pgx" (PostgreSQL).
	Driver string `json:"driver"`
	// DSN is a file path for sqlite or a connection URL for pgx.
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = db.DriverSQLite
	}
	if c.DSN == "" && c.Driver == db.DriverSQLite {
		c.DSN = "data/dispatch.db"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
}

func (c DatabaseConfig) Validate() error {
	switch c.Driver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("database: unknown driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("database: dsn is required for driver %s", c.Driver)
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("database: max_open_conns must not be negative")
	}
	return nil
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func (c HTTPConfig) Validate() error {
	if !strings.Contains(c.Addr, ":") {
		return fmt.Errorf("http: addr %q must be host:port or :port", c.Addr)
	}
	return nil
}

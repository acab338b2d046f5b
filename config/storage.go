package config

import "fmt"

// StorageConfig selects the persistence gateway backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `json:"backend"`
	// Path is the database file location for the sqlite backend.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "dispatchd.db"
	}
}

// Validate checks mandatory fields.
func (c StorageConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown storage backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	return nil
}

// AuditConfig defines settings for audit log storage and rotation.
type AuditConfig struct {
	// Backend selects the audit store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the audit store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "trip_audit.log"
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	if c.Backend != "jsonl" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("audit path is required")
	}
	return nil
}

// APIConfig holds the HTTP listener settings.
type APIConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

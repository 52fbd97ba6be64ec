// Package config handles configuration loading for hearth.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	session:
//	  secret: "${HEARTH_SESSION_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://hearth.example.com"
//
// Database:
//
//	database:
//	  path: "/var/lib/hearth/hearth.db"
//
// Sessions:
//
//	session:
//	  secret: "${HEARTH_SESSION_SECRET}"  # min 32 bytes
//	  ttl: "720h"
//
// Write-security guard:
//
//	guard:
//	  rate_per_second: 5
//	  rate_burst: 10
//
// Logging and metrics:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Usage
//
//	cfg, err := config.Load("/etc/hearth/hearth.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
